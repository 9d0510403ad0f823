package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupSbus    uint32 = 0x00050000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID       uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID      uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	SbusFrameTypeID       uint32 = TypeIDKindEvent | GroupSbus | 0x0000
	SbusWriteTypeID       uint32 = GroupSbus | 0x0001
	SbusReadingTypeID     uint32 = GroupSbus | 0x0002
	SbusStatusQueryTypeID uint32 = GroupSbus | 0x0003
	SbusStatusTypeID      uint32 = SbusStatusQueryTypeID | TypeIDMaskReply
)

func init() {
	Register(
		func() Message { return &CommandOK{} },
		func() Message { return &CommandErr{} },
		func() Message { return &SbusFrame{} },
		func() Message { return &SbusWrite{} },
		func() Message { return &SbusReading{} },
		func() Message { return &SbusStatusQuery{} },
		func() Message { return &SbusStatus{} },
	)
}

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct{}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

func (m *CommandOK) Reset()         { *m = CommandOK{} }
func (m *CommandOK) String() string { return proto.CompactTextString(m) }
func (*CommandOK) ProtoMessage()    {}

// TypeID implements Message.
func (*CommandOK) TypeID() uint32 { return CommandOKTypeID }

// CommandErr is the generic reply representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Message: err.Error()}
}

func (m *CommandErr) Reset()         { *m = CommandErr{} }
func (m *CommandErr) String() string { return proto.CompactTextString(m) }
func (*CommandErr) ProtoMessage()    {}

// TypeID implements Message.
func (*CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// SbusFrame is the event published for every decoded frame.
type SbusFrame struct {
	Channels  []uint32 `protobuf:"varint,1,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	Digital1  bool     `protobuf:"varint,2,opt,name=digital1,proto3" json:"digital1,omitempty"`
	Digital2  bool     `protobuf:"varint,3,opt,name=digital2,proto3" json:"digital2,omitempty"`
	FrameLost bool     `protobuf:"varint,4,opt,name=frame_lost,json=frameLost,proto3" json:"frame_lost,omitempty"`
	FailSafe  bool     `protobuf:"varint,5,opt,name=fail_safe,json=failSafe,proto3" json:"fail_safe,omitempty"`
}

// NewSbusFrame creates the event from a decoded value.
func NewSbusFrame(v sbus.Value) *SbusFrame {
	return &SbusFrame{
		Channels:  channelsOf(v),
		Digital1:  v.Digital1,
		Digital2:  v.Digital2,
		FrameLost: v.FrameLost,
		FailSafe:  v.FailSafe,
	}
}

func (m *SbusFrame) Reset()         { *m = SbusFrame{} }
func (m *SbusFrame) String() string { return proto.CompactTextString(m) }
func (*SbusFrame) ProtoMessage()    {}

// TypeID implements Message.
func (*SbusFrame) TypeID() uint32 { return SbusFrameTypeID }

// Value converts the event back to a Value.
func (m *SbusFrame) Value() sbus.Value {
	v := sbus.Value{
		Digital1:  m.Digital1,
		Digital2:  m.Digital2,
		FrameLost: m.FrameLost,
		FailSafe:  m.FailSafe,
	}
	setChannels(&v, m.Channels)
	return v
}

// SbusWrite is the command to transmit a frame.
type SbusWrite struct {
	Channels  []uint32 `protobuf:"varint,1,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	Digital1  bool     `protobuf:"varint,2,opt,name=digital1,proto3" json:"digital1,omitempty"`
	Digital2  bool     `protobuf:"varint,3,opt,name=digital2,proto3" json:"digital2,omitempty"`
	FrameLost bool     `protobuf:"varint,4,opt,name=frame_lost,json=frameLost,proto3" json:"frame_lost,omitempty"`
	FailSafe  bool     `protobuf:"varint,5,opt,name=fail_safe,json=failSafe,proto3" json:"fail_safe,omitempty"`
}

// NewSbusWrite creates the command from a value.
func NewSbusWrite(v sbus.Value) *SbusWrite {
	return &SbusWrite{
		Channels:  channelsOf(v),
		Digital1:  v.Digital1,
		Digital2:  v.Digital2,
		FrameLost: v.FrameLost,
		FailSafe:  v.FailSafe,
	}
}

func (m *SbusWrite) Reset()         { *m = SbusWrite{} }
func (m *SbusWrite) String() string { return proto.CompactTextString(m) }
func (*SbusWrite) ProtoMessage()    {}

// TypeID implements Message.
func (*SbusWrite) TypeID() uint32 { return SbusWriteTypeID }

// Value returns the value to transmit. Missing channels are zero and
// extra ones are ignored.
func (m *SbusWrite) Value() sbus.Value {
	v := sbus.Value{
		Digital1:  m.Digital1,
		Digital2:  m.Digital2,
		FrameLost: m.FrameLost,
		FailSafe:  m.FailSafe,
	}
	setChannels(&v, m.Channels)
	return v
}

// SbusReading is the command to start or stop reading.
type SbusReading struct {
	Enable bool `protobuf:"varint,1,opt,name=enable,proto3" json:"enable,omitempty"`
}

func (m *SbusReading) Reset()         { *m = SbusReading{} }
func (m *SbusReading) String() string { return proto.CompactTextString(m) }
func (*SbusReading) ProtoMessage()    {}

// TypeID implements Message.
func (*SbusReading) TypeID() uint32 { return SbusReadingTypeID }

// SbusStatusQuery command.
type SbusStatusQuery struct{}

func (m *SbusStatusQuery) Reset()         { *m = SbusStatusQuery{} }
func (m *SbusStatusQuery) String() string { return proto.CompactTextString(m) }
func (*SbusStatusQuery) ProtoMessage()    {}

// TypeID implements Message.
func (*SbusStatusQuery) TypeID() uint32 { return SbusStatusQueryTypeID }

// SbusStatus response.
type SbusStatus struct {
	Port         string `protobuf:"bytes,1,opt,name=port,proto3" json:"port,omitempty"`
	Connected    bool   `protobuf:"varint,2,opt,name=connected,proto3" json:"connected,omitempty"`
	Reading      bool   `protobuf:"varint,3,opt,name=reading,proto3" json:"reading,omitempty"`
	Frames       uint64 `protobuf:"varint,4,opt,name=frames,proto3" json:"frames,omitempty"`
	FrameLost    uint64 `protobuf:"varint,5,opt,name=frame_lost,json=frameLost,proto3" json:"frame_lost,omitempty"`
	SkippedBytes uint64 `protobuf:"varint,6,opt,name=skipped_bytes,json=skippedBytes,proto3" json:"skipped_bytes,omitempty"`
	Overflows    uint64 `protobuf:"varint,7,opt,name=overflows,proto3" json:"overflows,omitempty"`
	DroppedBytes uint64 `protobuf:"varint,8,opt,name=dropped_bytes,json=droppedBytes,proto3" json:"dropped_bytes,omitempty"`
}

// NewSbusStatus creates the response.
func NewSbusStatus(port string, connected, reading bool, stats sbus.Stats) *SbusStatus {
	return &SbusStatus{
		Port:         port,
		Connected:    connected,
		Reading:      reading,
		Frames:       stats.Frames,
		FrameLost:    stats.FrameLost,
		SkippedBytes: stats.SkippedBytes,
		Overflows:    stats.Overflows,
		DroppedBytes: stats.DroppedBytes,
	}
}

func (m *SbusStatus) Reset()         { *m = SbusStatus{} }
func (m *SbusStatus) String() string { return proto.CompactTextString(m) }
func (*SbusStatus) ProtoMessage()    {}

// TypeID implements Message.
func (*SbusStatus) TypeID() uint32 { return SbusStatusTypeID }

// Stats returns the counters.
func (m *SbusStatus) Stats() sbus.Stats {
	return sbus.Stats{
		Frames:       m.Frames,
		FrameLost:    m.FrameLost,
		SkippedBytes: m.SkippedBytes,
		Overflows:    m.Overflows,
		DroppedBytes: m.DroppedBytes,
	}
}

func channelsOf(v sbus.Value) []uint32 {
	ch := make([]uint32, len(v.Channels))
	for i, val := range v.Channels {
		ch[i] = uint32(val)
	}
	return ch
}

func setChannels(v *sbus.Value, ch []uint32) {
	for i := 0; i < len(ch) && i < len(v.Channels); i++ {
		v.Channels[i] = uint16(ch[i])
	}
}
