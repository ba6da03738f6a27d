package handler

import (
	"context"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T, s *services) *LendingClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLoggingInterceptor(slog.New(slog.DiscardHandler))))
	RegisterLendingServer(srv, NewGRPCHandler(s.lending, s.queue, s.queries))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewLendingClient(conn)
}

func asBorrower(id, role string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), MetadataBorrowerID, id, MetadataRole, role)
}

func TestGRPC_CheckoutAndReturn(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	title := s.addTitle(t, 1)
	client := newGRPCClient(t, s)
	ctx := asBorrower("1", "member")

	loan, err := client.Checkout(ctx, &CheckoutRequest{TitleID: title.Title.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), loan.BorrowerID)
	assert.Equal(t, title.Copies[0].ID, loan.CopyID)

	renewed, err := client.Renew(ctx, &RenewRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, renewed.Renewals)

	returned, err := client.Return(ctx, &ReturnRequest{CopyID: loan.CopyID})
	require.NoError(t, err)
	assert.Equal(t, "returned", returned.Loan.Status)
	assert.Equal(t, int64(0), returned.FineCents)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, false)
	title := s.addTitle(t, 1)
	client := newGRPCClient(t, s)

	tests := []struct {
		name string
		ctx  context.Context
		req  *CheckoutRequest
		want codes.Code
	}{
		{"no identity", context.Background(), &CheckoutRequest{TitleID: title.Title.ID}, codes.Unauthenticated},
		{"member acting for another", asBorrower("1", ""), &CheckoutRequest{BorrowerID: 2, TitleID: title.Title.ID}, codes.PermissionDenied},
		{"inactive membership", asBorrower("2", ""), &CheckoutRequest{TitleID: title.Title.ID}, codes.PermissionDenied},
		{"unknown title", asBorrower("1", ""), &CheckoutRequest{TitleID: 404}, codes.NotFound},
		{"invalid title", asBorrower("1", ""), &CheckoutRequest{}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Checkout(tt.ctx, tt.req)
			assert.Equal(t, tt.want, status.Code(err), err)
		})
	}
}

func TestGRPC_ReserveAndInventory(t *testing.T) {
	s := newServices(t)
	s.addBorrower(t, 1, true)
	s.addBorrower(t, 2, true)
	title := s.addTitle(t, 1)
	client := newGRPCClient(t, s)

	_, err := client.Reserve(asBorrower("2", ""), &ReserveRequest{TitleID: title.Title.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.Checkout(asBorrower("9", "librarian"), &CheckoutRequest{BorrowerID: 1, TitleID: title.Title.ID})
	require.NoError(t, err)

	reservation, err := client.Reserve(asBorrower("2", ""), &ReserveRequest{TitleID: title.Title.ID})
	require.NoError(t, err)
	assert.Equal(t, "active", reservation.Status)

	_, err = client.Reserve(asBorrower("2", ""), &ReserveRequest{TitleID: title.Title.ID})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	counts, err := client.Inventory(asBorrower("2", ""))
	require.NoError(t, err)
	assert.Equal(t, &InventoryResponse{Titles: 1, Copies: 1, Available: 0, CheckedOut: 1}, counts)
}

func TestGRPC_HidesInternalErrors(t *testing.T) {
	err := toStatus(assert.AnError)

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}
