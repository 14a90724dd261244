package models

import "time"

// Interface and Method name the DWN operation a message carries.
const (
	InterfaceProtocols = "Protocols"
	InterfaceRecords   = "Records"

	MethodConfigure = "Configure"
	MethodQuery     = "Query"
	MethodWrite     = "Write"
)

// TimestampFormat is the message timestamp layout (RFC 3339, microsecond precision, UTC).
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t for use in a descriptor.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Authorization carries the author's signature over the descriptor CID as a compact JWS.
type Authorization struct {
	Signature string `json:"signature"`
}

// ProtocolsFilter selects protocol configurations.
type ProtocolsFilter struct {
	Protocol string `json:"protocol,omitempty"`
}

// RecordsFilter selects records. Empty fields match anything.
type RecordsFilter struct {
	Protocol     string `json:"protocol,omitempty"`
	ProtocolPath string `json:"protocolPath,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Schema       string `json:"schema,omitempty"`
	DataFormat   string `json:"dataFormat,omitempty"`
}

// IsEmpty reports whether the filter would match every record.
func (f RecordsFilter) IsEmpty() bool {
	return f == RecordsFilter{}
}

// Matches reports whether a record descriptor satisfies the filter.
func (f RecordsFilter) Matches(d RecordsWriteDescriptor) bool {
	return (f.Protocol == "" || f.Protocol == d.Protocol) &&
		(f.ProtocolPath == "" || f.ProtocolPath == d.ProtocolPath) &&
		(f.Recipient == "" || f.Recipient == d.Recipient) &&
		(f.Schema == "" || f.Schema == d.Schema) &&
		(f.DataFormat == "" || f.DataFormat == d.DataFormat)
}

// ProtocolsConfigureDescriptor installs a protocol definition.
type ProtocolsConfigureDescriptor struct {
	Interface        string             `json:"interface"`
	Method           string             `json:"method"`
	MessageTimestamp string             `json:"messageTimestamp"`
	Definition       ProtocolDefinition `json:"definition"`
}

// ProtocolsConfigureMessage is a signed ProtocolsConfigure.
type ProtocolsConfigureMessage struct {
	Descriptor    ProtocolsConfigureDescriptor `json:"descriptor"`
	Authorization Authorization                `json:"authorization"`
}

// ProtocolsQueryDescriptor asks a DWN for its protocol configurations.
type ProtocolsQueryDescriptor struct {
	Interface        string           `json:"interface"`
	Method           string           `json:"method"`
	MessageTimestamp string           `json:"messageTimestamp"`
	Filter           *ProtocolsFilter `json:"filter,omitempty"`
}

// ProtocolsQueryMessage is a signed ProtocolsQuery.
type ProtocolsQueryMessage struct {
	Descriptor    ProtocolsQueryDescriptor `json:"descriptor"`
	Authorization Authorization            `json:"authorization"`
}

// RecordsWriteDescriptor describes a record and its data.
type RecordsWriteDescriptor struct {
	Interface        string `json:"interface"`
	Method           string `json:"method"`
	Protocol         string `json:"protocol,omitempty"`
	ProtocolPath     string `json:"protocolPath,omitempty"`
	Recipient        string `json:"recipient,omitempty"`
	Schema           string `json:"schema,omitempty"`
	DataCID          string `json:"dataCid"`
	DataSize         int    `json:"dataSize"`
	DataFormat       string `json:"dataFormat"`
	DateCreated      string `json:"dateCreated"`
	MessageTimestamp string `json:"messageTimestamp"`
}

// RecordsWriteMessage is a signed RecordsWrite. RecordID is content derived.
type RecordsWriteMessage struct {
	RecordID      string                 `json:"recordId"`
	Descriptor    RecordsWriteDescriptor `json:"descriptor"`
	Authorization Authorization          `json:"authorization"`
}

// RecordsQueryDescriptor asks a DWN for records matching a filter.
type RecordsQueryDescriptor struct {
	Interface        string        `json:"interface"`
	Method           string        `json:"method"`
	MessageTimestamp string        `json:"messageTimestamp"`
	Filter           RecordsFilter `json:"filter"`
}

// RecordsQueryMessage is a signed RecordsQuery.
type RecordsQueryMessage struct {
	Descriptor    RecordsQueryDescriptor `json:"descriptor"`
	Authorization Authorization          `json:"authorization"`
}

// RecordEntry is a stored record: the write message plus its data, attributed to an author.
type RecordEntry struct {
	Message RecordsWriteMessage
	Author  string
	Data    []byte
}

// SealedKey is an agent private key encrypted at rest.
type SealedKey struct {
	DID        string
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
	CreatedAt  time.Time
}
