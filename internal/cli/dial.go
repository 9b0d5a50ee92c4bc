package cli

import (
	"context"
	"fmt"
	"strings"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/commsutil"
	"github.com/morezero/zeroframe/pkg/db"
	"github.com/morezero/zeroframe/pkg/zeroframe"
)

const dialLogPrefix = "cli:dial"

// Dial connects through a gateway when opts.NATS is set and straight to the ZeroNet
// UI server otherwise.
func Dial(ctx context.Context, opts Options) (*zeroframe.Client, error) {
	if opts.NATS != "" {
		nc, err := commsutil.Connect(opts.NATS, "zeroframe-cli")
		if err != nil {
			return nil, err
		}
		b := bridge.NewNATSBridge(nc, bridge.NATSOptions{Subject: opts.Subject, DefaultTimeout: opts.Timeout})
		return zeroframe.NewClient(&ownedNATS{NATSBridge: b, nc: nc}), nil
	}

	key := opts.WrapperKey
	if key == "" {
		var err error
		key, err = bridge.DiscoverWrapperKey(ctx, nil, opts.UIURL, opts.Site)
		if err != nil {
			return nil, fmt.Errorf("%s - pass --wrapper-key or --site: %w", dialLogPrefix, err)
		}
	}
	ws, err := bridge.DialWS(ctx, bridge.WSOptions{
		URL:        strings.TrimSuffix(opts.UIURL, "/") + "/Websocket",
		WrapperKey: key,
	})
	if err != nil {
		return nil, err
	}
	return zeroframe.NewClient(ws), nil
}

// ownedNATS closes the COMMS connection it was dialed with.
type ownedNATS struct {
	*bridge.NATSBridge
	nc *comms.Conn
}

func (o *ownedNATS) Close() error {
	err := o.NATSBridge.Close()
	o.nc.Close()
	return err
}

// OpenStore opens the Postgres mirror store and makes sure its table exists.
func OpenStore(ctx context.Context, databaseURL string) (MirrorStore, func(), error) {
	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return db.NewRepository(pool), pool.Close, nil
}
