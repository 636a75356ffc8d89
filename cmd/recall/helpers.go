package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/recall/internal/grpcservice"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/tlsconf"
	"go.klb.dev/recall/internal/transport"
)

const rpcTimeout = 10 * time.Second

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	if v := os.Getenv("RECALL_SOURCE"); v != "" {
		return v
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// daemonConn is an open connection to a recall daemon.
type daemonConn struct {
	conn      *grpc.ClientConn
	client    *grpcservice.Client
	transport string
}

func (d *daemonConn) Close() error { return d.conn.Close() }

// dialDaemon connects over the IPC socket unless --server was given.
// No auth is sent over IPC; the socket is local and owner-restricted.
func dialDaemon(v *viper.Viper) (*daemonConn, error) {
	source := v.GetString("source")
	server := v.GetString("server")

	if server == "" {
		if !ipc.IsRunning() {
			return nil, fmt.Errorf("no recall daemon on %s (start one with \"recall serve\" or pass --server)", ipc.SocketPath())
		}
		conn, err := grpc.NewClient("passthrough:///recall-ipc",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return ipc.Dial(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithPerRPCCredentials(&grpcservice.Credentials{Source: source}),
		)
		if err != nil {
			return nil, fmt.Errorf("dial ipc: %w", err)
		}
		return &daemonConn{
			conn:      conn,
			client:    grpcservice.NewClient(conn),
			transport: fmt.Sprintf("ipc (%s)", ipc.SocketPath()),
		}, nil
	}

	token := v.GetString("token")
	pair, err := tlsconf.Derive(token)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}
	conn, err := grpc.NewClient(server,
		grpc.WithTransportCredentials(pair.GRPCCredentials()),
		grpc.WithPerRPCCredentials(&grpcservice.Credentials{Token: token, Source: source, Secure: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", server, err)
	}
	return &daemonConn{
		conn:      conn,
		client:    grpcservice.NewClient(conn),
		transport: fmt.Sprintf("tcp+tls (%s)", server),
	}, nil
}

// parseTimeArg accepts RFC 3339, a date (YYYY-MM-DD, local time), epoch
// milliseconds, or a duration meaning that long before now.
func parseTimeArg(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty time")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d).UnixMilli(), nil
	}
	return 0, fmt.Errorf("unrecognised time %q (want RFC 3339, YYYY-MM-DD, epoch ms or a duration like 24h)", s)
}

// timeRange builds the optional [since, until] range from flags. Giving
// only --since runs to now; giving only --until starts at the epoch.
func timeRange(v *viper.Viper, now time.Time) (start, end *int64, err error) {
	since, until := v.GetString("since"), v.GetString("until")
	if since == "" && until == "" {
		return nil, nil, nil
	}
	s, e := int64(0), now.UnixMilli()
	if since != "" {
		if s, err = parseTimeArg(since, now); err != nil {
			return nil, nil, fmt.Errorf("--since: %w", err)
		}
	}
	if until != "" {
		if e, err = parseTimeArg(until, now); err != nil {
			return nil, nil, fmt.Errorf("--until: %w", err)
		}
	}
	if s > e {
		return nil, nil, errors.New("--since is after --until")
	}
	return &s, &e, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(w io.Writer, items []transport.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No history.")
		return
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tCOPIED\tKIND\tCONTENT\n")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			it.ID,
			time.UnixMilli(it.CreatedAt).Format("2006-01-02 15:04:05"),
			kind(it),
			preview(it, 60),
		)
	}
	_ = tw.Flush()
}

func kind(it transport.Item) string {
	if string(it.Format) == string(it.Category) {
		return string(it.Format)
	}
	return string(it.Format) + "/" + string(it.Category)
}

// preview returns a single-line summary of it, at most n runes.
func preview(it transport.Item, n int) string {
	if it.Format == history.FormatImage {
		if it.ImageWidth != nil && it.ImageHeight != nil {
			return fmt.Sprintf("[image %dx%d]", *it.ImageWidth, *it.ImageHeight)
		}
		return "[image]"
	}
	var s string
	for _, p := range []*string{it.Text, it.FilePath, it.Color, it.HTML} {
		if p != nil {
			s = *p
			break
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > n {
		r := []rune(s)
		s = string(r[:n-1]) + "…"
	}
	return s
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 48*time.Hour {
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(age.Hours()/24))
}
