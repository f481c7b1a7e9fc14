package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"notice_relay/internal/delivery"
	"notice_relay/internal/detector"
	"notice_relay/internal/domain"
	"notice_relay/internal/source"
)

type Adapter interface {
	Fetch(ctx context.Context) ([]source.RawItem, error)
	Normalize(item source.RawItem) (domain.Notice, bool)
}

type Detector interface {
	Detect(ctx context.Context, sourceID string, policy domain.Policy, candidates []domain.Notice, cursor string) (detector.Result, error)
}

type NoticeStore interface {
	Append(ctx context.Context, n domain.Notice) (bool, error)
}

type DestinationStore interface {
	SubscribersOf(ctx context.Context, sourceID string) ([]domain.Destination, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.Notice, sourceName string, dests []domain.Destination) delivery.Report
}
