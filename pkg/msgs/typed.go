package msgs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// Message is a message which can be sent over the wire.
type Message interface {
	proto.Message
	TypeID() uint32
}

// Typed is the envelope of every packet.
type Typed struct {
	TypeID   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Typed) ProtoMessage() {}

// TypedMsgHandler handles a decoded message with its envelope.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, Message, *Typed) error
}

// HandleTypedMsgFunc is func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg Message, typed *Typed) error {
	return f(ctx, msg, typed)
}

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrUnsupportedCommand indicates the command is unsupported.
var ErrUnsupportedCommand = errors.New("unsupported command")

var (
	typesLock    sync.RWMutex
	messageTypes = make(map[uint32]func() Message)
)

// Register adds message types. It panics if a type ID is already taken.
func Register(factories ...func() Message) {
	typesLock.Lock()
	defer typesLock.Unlock()
	for _, newMsg := range factories {
		typeID := newMsg().TypeID()
		if _, exist := messageTypes[typeID]; exist {
			panic(fmt.Sprintf("type %x already registered", typeID))
		}
		messageTypes[typeID] = newMsg
	}
}

// NewMessage creates an empty message of typeID.
func NewMessage(typeID uint32) (Message, error) {
	typesLock.RLock()
	newMsg, ok := messageTypes[typeID]
	typesLock.RUnlock()
	if !ok {
		return nil, &ErrUnknownType{TypeID: typeID}
	}
	return newMsg(), nil
}

// TypedFrom wraps msg in an envelope.
func TypedFrom(msg Message) (*Typed, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeID: msg.TypeID(), Message: data}, nil
}

// Decode decodes the carried message.
func (m *Typed) Decode() (Message, error) {
	msg, err := NewMessage(m.TypeID)
	if err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(m.Message, msg); err != nil {
		return nil, fmt.Errorf("decode %x: %w", m.TypeID, err)
	}
	return msg, nil
}

// Encode encodes the envelope to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Kind gets message kind from type ID.
func (m *Typed) Kind() uint32 {
	return m.TypeID & TypeIDMaskKind
}

// IsCommand determines if the message is a command or a reply.
func (m *Typed) IsCommand() bool {
	return m.Kind() == TypeIDKindCommand
}

// IsReply determines if the message is a reply to a command.
func (m *Typed) IsReply() bool {
	return m.IsCommand() && m.TypeID&TypeIDMaskReply != 0
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.Kind() == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
