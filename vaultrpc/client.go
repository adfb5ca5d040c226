package vaultrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/keys"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
)

// Client submits signed calls to a Vault service.
type Client struct {
	cc     *grpc.ClientConn
	raw    VaultClient
	signer keys.Signer
	nonce  *atomic.Uint64

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to target. signer may be nil for read-only use.
func Dial(target string, signer keys.Signer, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc, signer)
	c.cc = cc
	return c, nil
}

// NewClient wraps an existing connection.
//
// Nonces start at the current unix time in nanoseconds, so a restarted client
// keeps producing nonces above those it used before.
func NewClient(cc grpc.ClientConnInterface, signer keys.Signer) *Client {
	return &Client{
		raw:    NewVaultClient(cc),
		signer: signer,
		nonce:  atomic.NewUint64(uint64(time.Now().UnixNano())),
	}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Caller is the address calls are submitted from.
func (c *Client) Caller() address.Address {
	if c.signer == nil {
		return address.Zero
	}
	return c.signer.Address()
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

// Send seals args for method with the next nonce and submits it.
func (c *Client) Send(ctx context.Context, method string, args *Args) (*structpb.Struct, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%s: client has no signer", method)
	}
	if args == nil {
		args = NewArgs()
	}
	env, err := Seal(method, args.Struct(), c.nonce.Inc(), c.signer)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.raw.Call(ctx, method, env)
	if err != nil {
		return nil, mapRPC(method, err)
	}
	return out, nil
}

// Query submits an unsigned read.
func (c *Client) Query(ctx context.Context, method string, args *Args) (*structpb.Struct, error) {
	if args == nil {
		args = NewArgs()
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.raw.Call(ctx, method, args.Struct())
	if err != nil {
		return nil, mapRPC(method, err)
	}
	return out, nil
}

// CustodyView is a custody word as reported by the service.
type CustodyView struct {
	Fund   address.Address
	Word   ledger.Word
	Record ledger.Record
}

func parseCustody(out *structpb.Struct) (CustodyView, error) {
	f := out.GetFields()
	fund, err := address.ParseAddress(f["fund"].GetStringValue())
	if err != nil {
		return CustodyView{}, fmt.Errorf("reply fund: %w", err)
	}
	h, err := address.ParseHash(f["custody"].GetStringValue())
	if err != nil {
		return CustodyView{}, fmt.Errorf("reply custody: %w", err)
	}
	w := ledger.Word(h)
	return CustodyView{Fund: fund, Word: w, Record: w.Record()}, nil
}

func (c *Client) custodyCall(ctx context.Context, method string, args *Args) (CustodyView, error) {
	out, err := c.Send(ctx, method, args)
	if err != nil {
		return CustodyView{}, err
	}
	return parseCustody(out)
}

func (c *Client) Contribute(ctx context.Context, fund, asset address.Address, amount *uint256.Int) (CustodyView, error) {
	return c.custodyCall(ctx, MethodContribute, NewArgs().
		Address("fund", fund).
		Address("asset", asset).
		Amount("amount", amount))
}

func (c *Client) ContributeFor(ctx context.Context, fund, user, asset address.Address, amount *uint256.Int) (CustodyView, error) {
	return c.custodyCall(ctx, MethodContributeFor, NewArgs().
		Address("fund", fund).
		Address("user", user).
		Address("asset", asset).
		Amount("amount", amount))
}

// Commit sends o to fund. The order's own Fund travels separately so the
// server can reject an order addressed elsewhere.
func (c *Client) Commit(ctx context.Context, fund address.Address, o ledger.CommitOrder) (CustodyView, error) {
	return c.custodyCall(ctx, MethodCommit, NewArgs().
		Address("fund", fund).
		Address("order_fund", o.Fund).
		Address("user", o.User).
		Address("asset", o.Asset).
		Amount("amount", o.Amount).
		Amount("fee", o.Fee).
		Uint("deadline", o.Deadline).
		Bytes("metadata", o.Metadata))
}

func (c *Client) Remit(ctx context.Context, fund address.Address, o ledger.RemitOrder) (CustodyView, error) {
	return c.custodyCall(ctx, MethodRemit, NewArgs().
		Address("fund", fund).
		Address("user", o.User).
		Address("asset", o.Asset).
		Amount("amount", o.Amount).
		Amount("fee", o.Fee).
		Bytes("metadata", o.Metadata))
}

func (c *Client) RequestRescission(ctx context.Context, fund, asset address.Address) (CustodyView, error) {
	return c.custodyCall(ctx, MethodRequestRescission, NewArgs().
		Address("fund", fund).
		Address("asset", asset))
}

func (c *Client) CharterFund(ctx context.Context, owner address.Address, salt address.Hash) (address.Address, error) {
	out, err := c.Send(ctx, MethodCharterFund, NewArgs().Address("owner", owner).Hash("salt", salt))
	if err != nil {
		return address.Zero, err
	}
	return address.ParseAddress(out.GetFields()["fund"].GetStringValue())
}

func (c *Client) SetMarshal(ctx context.Context, id address.Address, authorized bool) error {
	_, err := c.Send(ctx, MethodSetMarshal, NewArgs().Address("marshal", id).Bool("authorized", authorized))
	return err
}

func (c *Client) SetFreeze(ctx context.Context, frozen bool) error {
	_, err := c.Send(ctx, MethodSetFreeze, NewArgs().Bool("frozen", frozen))
	return err
}

func (c *Client) Upgrade(ctx context.Context, impl ledger.Implementation) error {
	_, err := c.Send(ctx, MethodUpgrade, NewArgs().
		Text("name", impl.Name).
		Text("version", impl.Version).
		Hash("code_hash", impl.CodeHash))
	return err
}

// Custody reads the custody word for (user, asset) in fund.
func (c *Client) Custody(ctx context.Context, fund, user, asset address.Address) (CustodyView, error) {
	out, err := c.Query(ctx, MethodCustody, NewArgs().
		Address("fund", fund).
		Address("user", user).
		Address("asset", asset))
	if err != nil {
		return CustodyView{}, err
	}
	return parseCustody(out)
}

// CustodyByKey reads a custody word by its raw key.
func (c *Client) CustodyByKey(ctx context.Context, fund address.Address, key address.Hash) (CustodyView, error) {
	out, err := c.Query(ctx, MethodCustody, NewArgs().Address("fund", fund).Hash("key", key))
	if err != nil {
		return CustodyView{}, err
	}
	return parseCustody(out)
}

func (c *Client) MarshalFrozen(ctx context.Context) (bool, error) {
	out, err := c.Query(ctx, MethodMarshalFrozen, nil)
	if err != nil {
		return false, err
	}
	return out.GetFields()["frozen"].GetBoolValue(), nil
}
