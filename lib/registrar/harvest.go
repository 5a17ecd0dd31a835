package registrar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CollectNonce fetches the term chooser page once and harvests its nonce.
// A fetch that succeeds without yielding a nonce fails with
// ErrNonceCollectionStalled.
func (s *Session) CollectNonce(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:CollectNonce")
	defer span.End()

	res, err := s.send(ctx, http.MethodGet, EndpointChooseSemester, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch term chooser")
		return err
	}
	result, err := s.interpret(ctx, res, fromMarker)
	if err != nil && !result.harvested {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to interpret term chooser")
		return err
	}
	if !result.harvested {
		span.SetStatus(codes.Error, ErrNonceCollectionStalled.Error())
		return ErrNonceCollectionStalled
	}
	nonceGauge.Record(ctx, int64(s.Pool.Len()))
	return nil
}

// CollectMaxNonces fills the pool up to its max count with concurrent
// CollectNonce calls. Nonces from the fetches that succeeded stay in the
// pool even when others fail, the failures are returned joined.
func (s *Session) CollectMaxNonces(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:CollectMaxNonces")
	defer span.End()

	missing := s.Pool.Missing()
	span.SetAttributes(attribute.Int("missing", missing))
	if missing <= 0 {
		return nil
	}

	var errList []error
	errLock := sync.Mutex{}
	wg := sync.WaitGroup{}
	for i := 0; i < missing; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.CollectNonce(ctx)
			if err != nil {
				errLock.Lock()
				defer errLock.Unlock()
				errList = append(errList, err)
			}
		}()
	}
	wg.Wait()

	slog.InfoContext(
		ctx, "collected nonces",
		"requested", missing,
		"failed", len(errList),
		"pool_size", s.Pool.Len(),
	)

	err := errors.Join(errList...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some nonce fetches failed")
	}
	return err
}
