// Package msgs provides the wire messages exchanged between devices and the
// cloud control plane.
//
// Messages are protobuf encoded. The topic a message is published on
// determines its type, so no type header is carried.
//
// cloud.proto is the schema. The Go types in messages.go are maintained by
// hand against it: struct tags follow protoc-gen-go output so the
// reflection based marshaler of github.com/golang/protobuf handles them.
// Keep field numbers in sync when changing either side.
//
// Producer: device (Event, FunctionResult), control plane (FunctionCall)
// Consumer: the other side
package msgs
