package vaultrpc

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/hub"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Server exposes a hub and its funds over the Vault gRPC service.
//
// Mutating methods take a signed envelope (see Seal); the caller is the
// address of the signing key. Custody and MarshalFrozen take plain arguments.
type Server struct {
	UnimplementedVaultServer
	Hub    *hub.Hub
	Nonces *NonceBook
	Log    zerolog.Logger
}

func NewServer(h *hub.Hub, log zerolog.Logger) *Server {
	return &Server{Hub: h, Nonces: NewNonceBook(), Log: log}
}

type call func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error)

func (s *Server) signed(ctx context.Context, method string, env *structpb.Struct, run call) (*structpb.Struct, error) {
	if s == nil || s.Hub == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing hub")
	}
	sealed, err := Open(method, env)
	if err != nil {
		s.Log.Info().Str("method", method).Err(err).Msg("rejected envelope")
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if s.Nonces == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing nonce book")
	}
	if err := s.Nonces.Use(sealed.Caller, sealed.Nonce); err != nil {
		s.Log.Info().Str("method", method).Str("caller", sealed.Caller.Hex()).Err(err).Msg("rejected nonce")
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	out, err := run(ctx, sealed.Caller, newReader(method, sealed.Args))
	if err != nil {
		s.Log.Info().
			Str("method", method).
			Str("caller", sealed.Caller.Hex()).
			Str("kind", string(protocol.KindOf(err))).
			Err(err).
			Msg("operation rejected")
		return nil, mapErr(err)
	}
	s.Log.Debug().Str("method", method).Str("caller", sealed.Caller.Hex()).Uint64("nonce", sealed.Nonce).Msg("operation applied")
	return reply(out)
}

func reply(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) fund(r *reader) (*ledger.Fund, error) {
	addr := r.address("fund")
	if r.err != nil {
		return nil, r.err
	}
	return s.Hub.Fund(addr)
}

func custodyFields(f *ledger.Fund, user, asset address.Address) map[string]interface{} {
	w := f.Custody(address.CustodyKey(user, asset))
	rec := w.Record()
	return map[string]interface{}{
		"fund":    f.Address().Hex(),
		"custody": w.Hex(),
		"owned":   rec.Owned.Dec(),
		"escrow":  rec.Escrow.Dec(),
	}
}

func (s *Server) Contribute(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodContribute, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		f, err := s.fund(r)
		if err != nil {
			return nil, err
		}
		asset, amount := r.address("asset"), r.amount("amount", true)
		if r.err != nil {
			return nil, r.err
		}
		if err := f.Contribute(ctx, caller, asset, amount); err != nil {
			return nil, err
		}
		return custodyFields(f, caller, asset), nil
	})
}

func (s *Server) ContributeFor(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodContributeFor, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		f, err := s.fund(r)
		if err != nil {
			return nil, err
		}
		user, asset, amount := r.address("user"), r.address("asset"), r.amount("amount", true)
		if r.err != nil {
			return nil, r.err
		}
		if err := f.ContributeFor(ctx, caller, user, asset, amount); err != nil {
			return nil, err
		}
		return custodyFields(f, user, asset), nil
	})
}

func (s *Server) Commit(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodCommit, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		f, err := s.fund(r)
		if err != nil {
			return nil, err
		}
		o := ledger.CommitOrder{
			Fund:     r.addressOr("order_fund", f.Address()),
			User:     r.address("user"),
			Asset:    r.address("asset"),
			Amount:   r.amount("amount", true),
			Fee:      r.amount("fee", false),
			Deadline: r.uint("deadline"),
			Metadata: r.bytes("metadata"),
		}
		if r.err != nil {
			return nil, r.err
		}
		if err := f.Commit(ctx, caller, o); err != nil {
			return nil, err
		}
		return custodyFields(f, o.User, o.Asset), nil
	})
}

func (s *Server) Remit(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodRemit, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		f, err := s.fund(r)
		if err != nil {
			return nil, err
		}
		o := ledger.RemitOrder{
			User:     r.address("user"),
			Asset:    r.address("asset"),
			Amount:   r.amount("amount", true),
			Fee:      r.amount("fee", false),
			Metadata: r.bytes("metadata"),
		}
		if r.err != nil {
			return nil, r.err
		}
		if err := f.Remit(ctx, caller, o); err != nil {
			return nil, err
		}
		out := custodyFields(f, o.User, o.Asset)
		out["fees"] = f.Fees(o.Asset).Dec()
		return out, nil
	})
}

func (s *Server) RequestRescission(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodRequestRescission, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		f, err := s.fund(r)
		if err != nil {
			return nil, err
		}
		asset := r.address("asset")
		if r.err != nil {
			return nil, r.err
		}
		if err := f.RequestRescission(ctx, caller, asset); err != nil {
			return nil, err
		}
		return custodyFields(f, caller, asset), nil
	})
}

func (s *Server) CharterFund(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodCharterFund, env, func(ctx context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		owner, salt := r.address("owner"), r.hash("salt")
		if r.err != nil {
			return nil, r.err
		}
		addr, err := s.Hub.CharterFund(ctx, caller, owner, salt)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"fund": addr.Hex(), "salt": hub.EffectiveSalt(owner, salt).Hex()}, nil
	})
}

func (s *Server) SetMarshal(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodSetMarshal, env, func(_ context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		id, ok := r.address("marshal"), r.boolean("authorized")
		if r.err != nil {
			return nil, r.err
		}
		if err := s.Hub.SetMarshal(caller, id, ok); err != nil {
			return nil, err
		}
		return map[string]interface{}{"marshal": id.Hex(), "authorized": ok}, nil
	})
}

func (s *Server) SetFreeze(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodSetFreeze, env, func(_ context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		frozen := r.boolean("frozen")
		if r.err != nil {
			return nil, r.err
		}
		if err := s.Hub.SetFreeze(caller, frozen); err != nil {
			return nil, err
		}
		return map[string]interface{}{"frozen": frozen}, nil
	})
}

func (s *Server) Upgrade(ctx context.Context, env *structpb.Struct) (*structpb.Struct, error) {
	return s.signed(ctx, MethodUpgrade, env, func(_ context.Context, caller address.Address, r *reader) (map[string]interface{}, error) {
		impl := ledger.Implementation{Name: r.str("name"), Version: r.str("version"), CodeHash: r.hash("code_hash")}
		if r.err != nil {
			return nil, r.err
		}
		if err := s.Hub.Upgrade(caller, impl); err != nil {
			return nil, err
		}
		return map[string]interface{}{"beacon": s.Hub.Beacon().Address().Hex(), "name": impl.Name, "version": impl.Version}, nil
	})
}

// Custody reads one custody word. Arguments are either fund and key, or fund,
// user and asset.
func (s *Server) Custody(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.Hub == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing hub")
	}
	r := newReader(MethodCustody, in)
	f, err := s.fund(r)
	if err != nil {
		return nil, mapErr(err)
	}
	var key address.Hash
	if _, byKey := in.GetFields()["key"]; byKey {
		key = r.hash("key")
	} else {
		key = address.CustodyKey(r.address("user"), r.address("asset"))
	}
	if r.err != nil {
		return nil, mapErr(r.err)
	}
	w := f.Custody(key)
	rec := w.Record()
	return reply(map[string]interface{}{
		"fund":    f.Address().Hex(),
		"key":     key.Hex(),
		"custody": w.Hex(),
		"owned":   rec.Owned.Dec(),
		"escrow":  rec.Escrow.Dec(),
	})
}

func (s *Server) MarshalFrozen(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.Hub == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing hub")
	}
	return reply(map[string]interface{}{
		"frozen":     s.Hub.MarshalFrozen(),
		"governance": s.Hub.Governance().Hex(),
	})
}
