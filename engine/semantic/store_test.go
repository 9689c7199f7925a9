package semantic

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func strVal(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func TestPayloadStringPlain(t *testing.T) {
	if got := payloadString(strVal("rash")); got != "rash" {
		t.Errorf("got %q", got)
	}
}

func TestPayloadStringUnwrapsSingletonList(t *testing.T) {
	wrapped := &pb.Value{Kind: &pb.Value_ListValue{
		ListValue: &pb.ListValue{Values: []*pb.Value{strVal("Tadalafil")}},
	}}
	if got := payloadString(wrapped); got != "Tadalafil" {
		t.Errorf("singleton list not unwrapped, got %q", got)
	}
}

func TestPayloadStringNestedSingleton(t *testing.T) {
	inner := &pb.Value{Kind: &pb.Value_ListValue{
		ListValue: &pb.ListValue{Values: []*pb.Value{strVal("Severe")}},
	}}
	outer := &pb.Value{Kind: &pb.Value_ListValue{
		ListValue: &pb.ListValue{Values: []*pb.Value{inner}},
	}}
	if got := payloadString(outer); got != "Severe" {
		t.Errorf("got %q", got)
	}
}

func TestPayloadStringMultiElementListNotUnwrapped(t *testing.T) {
	multi := &pb.Value{Kind: &pb.Value_ListValue{
		ListValue: &pb.ListValue{Values: []*pb.Value{strVal("a"), strVal("b")}},
	}}
	if got := payloadString(multi); got != "" {
		t.Errorf("multi-element list should not unwrap, got %q", got)
	}
}

func TestPayloadStringScalars(t *testing.T) {
	intV := &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: 7}}
	if got := payloadString(intV); got != "7" {
		t.Errorf("got %q", got)
	}
	boolV := &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: true}}
	if got := payloadString(boolV); got != "true" {
		t.Errorf("got %q", got)
	}
	if got := payloadString(nil); got != "" {
		t.Errorf("nil value should render empty, got %q", got)
	}
}
