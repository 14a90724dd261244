package message

import (
	"time"

	"vctodwn/internal/dwn/models"
)

// NewProtocolsConfigure builds a signed ProtocolsConfigure for def.
func NewProtocolsConfigure(s *Signer, def models.ProtocolDefinition, now time.Time) (models.ProtocolsConfigureMessage, error) {
	descriptor := models.ProtocolsConfigureDescriptor{
		Interface:        models.InterfaceProtocols,
		Method:           models.MethodConfigure,
		MessageTimestamp: models.Timestamp(now),
		Definition:       def,
	}
	auth, err := s.Sign(descriptor)
	if err != nil {
		return models.ProtocolsConfigureMessage{}, err
	}
	return models.ProtocolsConfigureMessage{Descriptor: descriptor, Authorization: auth}, nil
}

// NewProtocolsQuery builds a signed ProtocolsQuery. An empty protocol queries all.
func NewProtocolsQuery(s *Signer, protocol string, now time.Time) (models.ProtocolsQueryMessage, error) {
	descriptor := models.ProtocolsQueryDescriptor{
		Interface:        models.InterfaceProtocols,
		Method:           models.MethodQuery,
		MessageTimestamp: models.Timestamp(now),
	}
	if protocol != "" {
		descriptor.Filter = &models.ProtocolsFilter{Protocol: protocol}
	}
	auth, err := s.Sign(descriptor)
	if err != nil {
		return models.ProtocolsQueryMessage{}, err
	}
	return models.ProtocolsQueryMessage{Descriptor: descriptor, Authorization: auth}, nil
}

// RecordsWriteInput is the caller supplied part of a RecordsWrite.
type RecordsWriteInput struct {
	Protocol     string
	ProtocolPath string
	Schema       string
	DataFormat   string
	Recipient    string
	Data         []byte
}

// NewRecordsWrite builds a signed RecordsWrite and derives its record id from the
// descriptor CID and the author.
func NewRecordsWrite(s *Signer, in RecordsWriteInput, now time.Time) (models.RecordsWriteMessage, error) {
	dataCID, err := DataCID(in.Data)
	if err != nil {
		return models.RecordsWriteMessage{}, err
	}
	ts := models.Timestamp(now)
	descriptor := models.RecordsWriteDescriptor{
		Interface:        models.InterfaceRecords,
		Method:           models.MethodWrite,
		Protocol:         in.Protocol,
		ProtocolPath:     in.ProtocolPath,
		Recipient:        in.Recipient,
		Schema:           in.Schema,
		DataCID:          dataCID,
		DataSize:         len(in.Data),
		DataFormat:       in.DataFormat,
		DateCreated:      ts,
		MessageTimestamp: ts,
	}
	recordID, err := RecordID(descriptor, s.DID())
	if err != nil {
		return models.RecordsWriteMessage{}, err
	}
	auth, err := s.Sign(descriptor)
	if err != nil {
		return models.RecordsWriteMessage{}, err
	}
	return models.RecordsWriteMessage{RecordID: recordID, Descriptor: descriptor, Authorization: auth}, nil
}

// RecordID is the CID of the initial descriptor together with its author.
func RecordID(descriptor models.RecordsWriteDescriptor, author string) (string, error) {
	descriptorCID, err := CID(descriptor)
	if err != nil {
		return "", err
	}
	return CID(struct {
		DescriptorCID string `json:"descriptorCid"`
		Author        string `json:"author"`
	}{descriptorCID, author})
}

// NewRecordsQuery builds a signed RecordsQuery.
func NewRecordsQuery(s *Signer, filter models.RecordsFilter, now time.Time) (models.RecordsQueryMessage, error) {
	descriptor := models.RecordsQueryDescriptor{
		Interface:        models.InterfaceRecords,
		Method:           models.MethodQuery,
		MessageTimestamp: models.Timestamp(now),
		Filter:           filter,
	}
	auth, err := s.Sign(descriptor)
	if err != nil {
		return models.RecordsQueryMessage{}, err
	}
	return models.RecordsQueryMessage{Descriptor: descriptor, Authorization: auth}, nil
}
