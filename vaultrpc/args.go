package vaultrpc

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Args builds a call argument struct. Addresses, hashes and byte strings are
// hex, amounts are decimal strings.
type Args struct {
	s *structpb.Struct
}

func NewArgs() *Args { return &Args{s: &structpb.Struct{Fields: map[string]*structpb.Value{}}} }

func (a *Args) Address(k string, v address.Address) *Args { return a.str(k, v.Hex()) }
func (a *Args) Hash(k string, v address.Hash) *Args       { return a.str(k, v.Hex()) }
func (a *Args) Bytes(k string, v []byte) *Args            { return a.str(k, "0x"+hex.EncodeToString(v)) }
func (a *Args) Text(k, v string) *Args                    { return a.str(k, v) }
func (a *Args) Uint(k string, v uint64) *Args             { return a.str(k, strconv.FormatUint(v, 10)) }

func (a *Args) Amount(k string, v *uint256.Int) *Args {
	if v == nil {
		v = new(uint256.Int)
	}
	return a.str(k, v.Dec())
}

func (a *Args) Bool(k string, v bool) *Args {
	a.s.Fields[k] = structpb.NewBoolValue(v)
	return a
}

func (a *Args) str(k, v string) *Args {
	a.s.Fields[k] = structpb.NewStringValue(v)
	return a
}

func (a *Args) Struct() *structpb.Struct { return a.s }

// reader decodes call arguments, keeping the first error.
type reader struct {
	op  string
	s   *structpb.Struct
	err error
}

func newReader(op string, s *structpb.Struct) *reader { return &reader{op: op, s: s} }

func (r *reader) fail(k, msg string, cause error) {
	if r.err == nil {
		r.err = protocol.Wrap(protocol.KindInvalidArgument, r.op, "argument "+k+": "+msg, cause)
	}
}

func (r *reader) raw(k string, required bool) (string, bool) {
	v, ok := r.s.GetFields()[k]
	if !ok {
		if required {
			r.fail(k, "missing", nil)
		}
		return "", false
	}
	sv, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		r.fail(k, "must be a string", nil)
		return "", false
	}
	return strings.TrimSpace(sv.StringValue), true
}

func (r *reader) address(k string) address.Address {
	s, ok := r.raw(k, true)
	if !ok {
		return address.Zero
	}
	a, err := address.ParseAddress(s)
	if err != nil {
		r.fail(k, "bad address", err)
	}
	return a
}

// addressOr reads an optional address, falling back to def when k is absent.
func (r *reader) addressOr(k string, def address.Address) address.Address {
	if _, ok := r.s.GetFields()[k]; !ok {
		return def
	}
	return r.address(k)
}

func (r *reader) hash(k string) address.Hash {
	s, ok := r.raw(k, false)
	if !ok || s == "" {
		return address.Hash{}
	}
	h, err := address.ParseHash(s)
	if err != nil {
		r.fail(k, "bad hash", err)
	}
	return h
}

func (r *reader) amount(k string, required bool) *uint256.Int {
	s, ok := r.raw(k, required)
	if !ok {
		return new(uint256.Int)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		r.fail(k, "bad amount", err)
		return new(uint256.Int)
	}
	return v
}

func (r *reader) uint(k string) uint64 {
	s, ok := r.raw(k, false)
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.fail(k, "bad integer", err)
	}
	return v
}

func (r *reader) bytes(k string) []byte {
	s, ok := r.raw(k, false)
	if !ok || s == "" {
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		r.fail(k, "bad hex", err)
	}
	return b
}

func (r *reader) str(k string) string {
	s, _ := r.raw(k, true)
	return s
}

func (r *reader) boolean(k string) bool {
	v, ok := r.s.GetFields()[k]
	if !ok {
		r.fail(k, "missing", nil)
		return false
	}
	bv, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		r.fail(k, "must be a bool", nil)
		return false
	}
	return bv.BoolValue
}
