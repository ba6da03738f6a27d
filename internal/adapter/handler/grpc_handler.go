package handler

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/core/service"
)

type GRPCHandler struct {
	lending *service.LendingService
	queue   *service.ReservationQueue
	queries *service.QueryService
}

func NewGRPCHandler(lending *service.LendingService, queue *service.ReservationQueue, queries *service.QueryService) *GRPCHandler {
	return &GRPCHandler{lending: lending, queue: queue, queries: queries}
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*LoanResponse, error) {
	borrowerID, err := h.borrower(ctx, req.BorrowerID)
	if err != nil {
		return nil, toStatus(err)
	}

	loan, err := h.lending.Checkout(ctx, domain.CheckoutCommand{
		BorrowerID: borrowerID,
		TitleID:    req.TitleID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toLoanResponse(*loan)
	return &resp, nil
}

func (h *GRPCHandler) Renew(ctx context.Context, req *RenewRequest) (*LoanResponse, error) {
	borrowerID, err := h.borrower(ctx, req.BorrowerID)
	if err != nil {
		return nil, toStatus(err)
	}

	loan, err := h.lending.Renew(ctx, domain.RenewCommand{
		BorrowerID: borrowerID,
		LoanID:     req.LoanID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toLoanResponse(*loan)
	return &resp, nil
}

func (h *GRPCHandler) Return(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error) {
	borrowerID, err := h.borrower(ctx, req.BorrowerID)
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := h.lending.Return(ctx, domain.ReturnCommand{
		BorrowerID: borrowerID,
		CopyID:     req.CopyID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toReturnResponse(*result)
	return &resp, nil
}

func (h *GRPCHandler) Reserve(ctx context.Context, req *ReserveRequest) (*ReservationResponse, error) {
	borrowerID, err := h.borrower(ctx, req.BorrowerID)
	if err != nil {
		return nil, toStatus(err)
	}

	reservation, err := h.queue.Reserve(ctx, domain.ReserveCommand{
		BorrowerID: borrowerID,
		TitleID:    req.TitleID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toReservationResponse(*reservation)
	return &resp, nil
}

func (h *GRPCHandler) Inventory(ctx context.Context, _ *InventoryRequest) (*InventoryResponse, error) {
	if _, err := identityFromMetadata(ctx); err != nil {
		return nil, toStatus(err)
	}

	counts, err := h.queries.Inventory(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toInventoryResponse(counts)
	return &resp, nil
}

func (h *GRPCHandler) borrower(ctx context.Context, requested int64) (int64, error) {
	id, err := identityFromMetadata(ctx)
	if err != nil {
		return 0, err
	}
	return actingBorrower(id, requested)
}

func toStatus(err error) error {
	return status.Error(grpcCode(err), publicMessage(err))
}

// UnaryLoggingInterceptor logs every call with its status code and duration.
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "grpc call",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
