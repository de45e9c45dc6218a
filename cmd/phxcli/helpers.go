package main

// Thin wrappers so main.go stays readable. Real logic lives in internal/
// and in the phoenix package itself.

import (
	"context"
	"fmt"
	"time"

	"github.com/eshe-huli/phx/internal/authkey"
	"github.com/eshe-huli/phx/internal/config"
	"github.com/eshe-huli/phx/internal/crypto"
	"github.com/eshe-huli/phx/internal/filewatch"
	"github.com/eshe-huli/phx/internal/wsconn"
	"github.com/eshe-huli/phx/phoenix"
)

func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}
	if tokenFlag != "" {
		cfg.Token = tokenFlag
	}
	if keyFlag != "" {
		cfg.KeyPath = keyFlag
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured: pass --endpoint or set it in %s", path)
	}
	return cfg, nil
}

// dial loads config, signs a connect challenge if a key is configured, and
// returns an already-connecting Socket plus the config it was built from.
func dial() (*phoenix.Socket, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	tm, err := authkey.NewTokenManager(cfg.KeyPath, cfg.Token)
	if err != nil {
		return nil, nil, err
	}
	params, err := tm.ConnectParams()
	if err != nil {
		return nil, nil, err
	}
	params["client_id"] = cfg.ClientID

	socket, err := phoenix.NewSocket(cfg.Endpoint,
		phoenix.WithTransportFactory(wsconn.NewFactory()),
		phoenix.WithParams(params),
		phoenix.WithHeartbeatInterval(cfg.HeartbeatInterval()),
		phoenix.WithDefaultTimeout(cfg.JoinTimeout()),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := socket.Connect(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Endpoint, err)
	}
	return socket, cfg, nil
}

// awaitPush blocks until p resolves ok or error/timeout, turning the async
// Push API into a synchronous call for one-shot CLI commands.
func awaitPush(p *phoenix.Push) (phoenix.Message, error) {
	result := make(chan phoenix.Message, 1)
	failure := make(chan error, 1)

	p.Receive(phoenix.StatusOK, func(m phoenix.Message) { result <- m })
	p.Receive(phoenix.StatusError, func(m phoenix.Message) {
		failure <- fmt.Errorf("server error: %s", m.Payload)
	})
	p.Receive(phoenix.StatusTimeout, func(phoenix.Message) {
		failure <- fmt.Errorf("timed out waiting for reply")
	})

	select {
	case m := <-result:
		return m, nil
	case err := <-failure:
		return phoenix.Message{}, err
	}
}

func blake3Hash(data []byte) []byte {
	return crypto.Blake3Hash(data)
}

func genKeypair() (pub, priv []byte, err error) {
	return crypto.GenerateEd25519Keypair()
}

func hexPublicKey(pub []byte) string {
	return crypto.PublicKeyHex(pub)
}

func watchDirs(ctx context.Context, dirs []string, debounce time.Duration, ch *phoenix.Channel, event string) error {
	return filewatch.Watch(ctx, dirs, debounce, ch, event)
}
