package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/coder/websocket"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/BaSui01/schemals/config"
	"github.com/BaSui01/schemals/internal/tlsutil"
	"github.com/BaSui01/schemals/lsp"
)

// =============================================================================
// 🏓 ping 命令
// =============================================================================

type pingOptions struct {
	transport string
	addr      string
	path      string
	useTLS    bool
	caFile    string
	timeout   time.Duration
}

func runPing(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	opts := pingOptions{}
	fs.StringVar(&opts.transport, "transport", config.TransportTCP, "Transport: tcp or websocket")
	fs.StringVar(&opts.addr, "addr", config.DefaultServerConfig().Addr, "Server address")
	fs.StringVar(&opts.path, "path", config.DefaultServerConfig().WebSocketPath, "WebSocket path")
	fs.BoolVar(&opts.useTLS, "tls", false, "Connect with TLS")
	fs.StringVar(&opts.caFile, "ca", "", "CA bundle used to verify the server")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Overall timeout")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	rwc, err := dial(ctx, opts)
	if err != nil {
		return err
	}

	client := lsp.NewClient(ctx, rwc, zap.NewNop())
	defer client.Close()

	started := time.Now()
	result, err := client.Initialize(ctx, protocol.InitializeParams{
		ProcessID:  int32(os.Getpid()),
		ClientInfo: &protocol.ClientInfo{Name: "schemals-ping", Version: Version},
	})
	if err != nil {
		return err
	}
	rtt := time.Since(started)

	if err := client.Shutdown(ctx); err != nil {
		return err
	}

	info := protocol.ServerInfo{Name: "unknown"}
	if result.ServerInfo != nil {
		info = *result.ServerInfo
	}
	fmt.Printf("%s %s (%s) in %s\n", info.Name, info.Version, opts.transport, rtt.Round(time.Microsecond))
	if legend, ok := lsp.SemanticTokensLegendOf(result.Capabilities); ok {
		fmt.Printf("  Token types: %v\n", legend.TokenTypes)
	}
	return nil
}

// dial 按传输方式建立到服务器的字节流
func dial(ctx context.Context, opts pingOptions) (io.ReadWriteCloser, error) {
	var tlsCfg *tls.Config
	if opts.useTLS {
		cfg, err := tlsutil.ClientConfig(opts.caFile)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(opts.addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", opts.addr, err)
		}
		cfg.ServerName = host
		tlsCfg = cfg
	}

	switch opts.transport {
	case config.TransportTCP:
		if tlsCfg != nil {
			d := &tls.Dialer{Config: tlsCfg}
			return d.DialContext(ctx, "tcp", opts.addr)
		}
		var d net.Dialer
		return d.DialContext(ctx, "tcp", opts.addr)

	case config.TransportWebSocket:
		scheme := "ws"
		if tlsCfg != nil {
			scheme = "wss"
		}
		url := scheme + "://" + opts.addr + opts.path
		// websocket 拒绝设置了 Timeout 的 http.Client，超时由 ctx 控制
		ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
			HTTPClient: tlsutil.SecureHTTPClient(0, tlsCfg),
		})
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		return websocket.NetConn(context.Background(), ws, websocket.MessageText), nil

	default:
		return nil, fmt.Errorf("ping does not support transport %q", opts.transport)
	}
}
