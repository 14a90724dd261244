package node

import (
	"context"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/models"
)

type protocolHandle struct {
	node *Node
	msg  models.ProtocolsConfigureMessage
}

func (h *protocolHandle) Definition() models.ProtocolDefinition {
	return h.msg.Descriptor.Definition
}

func (h *protocolHandle) Send(ctx context.Context, target string) (models.Status, error) {
	return h.node.send(ctx, target, h.msg, nil)
}

type recordHandle struct {
	node  *Node
	entry models.RecordEntry
}

func (h *recordHandle) ID() string {
	return h.entry.Message.RecordID
}

func (h *recordHandle) Recipient() string {
	return h.entry.Message.Descriptor.Recipient
}

func (h *recordHandle) Send(ctx context.Context, target string) (models.Status, error) {
	return h.node.send(ctx, target, h.entry.Message, h.entry.Data)
}

var (
	_ dwn.ProtocolHandle = (*protocolHandle)(nil)
	_ dwn.RecordHandle   = (*recordHandle)(nil)
)
