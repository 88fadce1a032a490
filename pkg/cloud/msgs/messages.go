package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"
)

// Event is a published device event.
type Event struct {
	Name        string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Data        string `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
	Ttl         int32  `protobuf:"varint,3,opt,name=ttl,proto3" json:"ttl,omitempty"`
	Private     bool   `protobuf:"varint,4,opt,name=private,proto3" json:"private,omitempty"`
	PublishedAt int64  `protobuf:"varint,5,opt,name=published_at,json=publishedAt,proto3" json:"published_at,omitempty"`
}

// Reset implements proto.Message.
func (m *Event) Reset() { *m = Event{} }

// String implements proto.Message.
func (m *Event) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Event) ProtoMessage() {}

// Time returns PublishedAt as time.Time.
func (m *Event) Time() time.Time {
	return time.Unix(0, m.PublishedAt*int64(time.Millisecond))
}

// FunctionCall invokes a function on a device.
type FunctionCall struct {
	RequestId string `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	Name      string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Arg       string `protobuf:"bytes,3,opt,name=arg,proto3" json:"arg,omitempty"`
}

// Reset implements proto.Message.
func (m *FunctionCall) Reset() { *m = FunctionCall{} }

// String implements proto.Message.
func (m *FunctionCall) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*FunctionCall) ProtoMessage() {}

// FunctionResult is the reply of a FunctionCall.
type FunctionResult struct {
	RequestId   string `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	Name        string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	ReturnValue int32  `protobuf:"varint,3,opt,name=return_value,json=returnValue,proto3" json:"return_value"`
	Error       string `protobuf:"bytes,4,opt,name=error,proto3" json:"error,omitempty"`
}

// Reset implements proto.Message.
func (m *FunctionResult) Reset() { *m = FunctionResult{} }

// String implements proto.Message.
func (m *FunctionResult) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*FunctionResult) ProtoMessage() {}

// Encode marshals a message.
func Encode(msg proto.Message) ([]byte, error) {
	return proto.Marshal(msg)
}

// DecodeEvent unmarshals an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var m Event
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeFunctionCall unmarshals a FunctionCall.
func DecodeFunctionCall(data []byte) (*FunctionCall, error) {
	var m FunctionCall
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeFunctionResult unmarshals a FunctionResult.
func DecodeFunctionResult(data []byte) (*FunctionResult, error) {
	var m FunctionResult
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
