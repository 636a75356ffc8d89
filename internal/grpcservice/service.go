// Package grpcservice implements the recall.v1.History gRPC server.
package grpcservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/query"
	"go.klb.dev/recall/internal/transport"
)

// SourceHeader names the metadata key clients use to identify themselves
// in server logs.
const SourceHeader = "x-recall-source"

// Querier is the history surface the service exposes.
type Querier interface {
	ListHistory(ctx context.Context, limit *int) ([]transport.Item, error)
	SearchHistory(ctx context.Context, q string, limit *int) ([]transport.Item, error)
	ListHistoryByDate(ctx context.Context, start, end int64, limit *int) ([]transport.Item, error)
	SearchHistoryByDate(ctx context.Context, q string, start, end int64, limit *int) ([]transport.Item, error)
	SetClipboard(ctx context.Context, id int64) error
}

// Counter reports the number of stored records.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Options carries the optional parts of a Service. An empty Token disables
// auth.
type Options struct {
	Token     string
	Version   string
	Strategy  string
	Clipboard string
	Database  string
	StartedAt time.Time
	Counter   Counter
}

// Service implements HistoryServer.
type Service struct {
	q    Querier
	h    *notify.Hub
	opts Options
	now  func() time.Time
}

// New returns a Service backed by q and h.
func New(q Querier, h *notify.Hub, opts Options) *Service {
	return &Service{q: q, h: h, opts: opts, now: time.Now}
}

// List implements History.List. Query is ignored.
func (s *Service) List(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	r := *req
	r.Query = ""
	return s.history(ctx, &r)
}

// Search implements History.Search. A blank query behaves like List.
func (s *Service) Search(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return s.history(ctx, req)
}

func (s *Service) history(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if (req.Start == nil) != (req.End == nil) {
		return nil, status.Error(codes.InvalidArgument, "start and end must be given together")
	}

	var (
		items []transport.Item
		err   error
	)
	if req.Start != nil {
		if *req.Start > *req.End {
			return nil, status.Error(codes.InvalidArgument, "start is after end")
		}
		items, err = s.q.SearchHistoryByDate(ctx, req.Query, *req.Start, *req.End, req.Limit)
	} else {
		items, err = s.q.SearchHistory(ctx, req.Query, req.Limit)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &HistoryResponse{Items: items}, nil
}

// Restore implements History.Restore.
func (s *Service) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.q.SetClipboard(ctx, req.ID); err != nil {
		slog.Warn("restore failed", "id", req.ID, "source", sourceFromCtx(ctx), "err", err)
		return nil, toStatus(err)
	}
	slog.Info("clipboard restored", "id", req.ID, "source", sourceFromCtx(ctx))
	return &RestoreResponse{}, nil
}

// Status implements History.Status.
func (s *Service) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	resp := &StatusResponse{
		Version:     s.opts.Version,
		Subscribers: s.h.Subscribers(),
		Strategy:    s.opts.Strategy,
		Clipboard:   s.opts.Clipboard,
		Database:    s.opts.Database,
	}
	if !s.opts.StartedAt.IsZero() {
		resp.StartedAt = s.opts.StartedAt.UnixMilli()
	}
	if s.opts.Counter != nil {
		n, err := s.opts.Counter.Count(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		resp.Items = n
	}
	return resp, nil
}

// Watch implements History.Watch.
func (s *Service) Watch(_ *WatchRequest, stream grpc.ServerStreamingServer[WatchEvent]) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	sub := s.h.Subscribe("grpc/"+sourceFromCtx(ctx), 0)
	defer s.h.Unsubscribe(sub)

	slog.Info("watch started", "subscriber", sub.ID())
	defer slog.Info("watch ended", "subscriber", sub.ID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := stream.Send(&WatchEvent{Event: ev.Name, Time: s.now().UnixMilli()}); err != nil {
				return err
			}
		}
	}
}

// auth validates the bearer token in ctx metadata. Skipped when no token is
// configured.
func (s *Service) auth(ctx context.Context) error {
	if s.opts.Token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	tok, _ := strings.CutPrefix(vals[0], "Bearer ")
	if !tokenMatches(tok, s.opts.Token) {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, query.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, query.ErrNothingToWrite):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, clip.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func sourceFromCtx(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(SourceHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
