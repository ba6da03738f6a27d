package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// Identity is asserted by the session provider in front of this service.
const (
	HeaderBorrowerID   = "X-Borrower-ID"
	HeaderRole         = "X-Role"
	MetadataBorrowerID = "x-borrower-id"
	MetadataRole       = "x-role"
)

func parseIdentity(rawID, rawRole string) (domain.Identity, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return domain.Identity{}, ErrUnauthenticated
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(rawRole)))
	switch role {
	case "":
		role = domain.RoleMember
	case domain.RoleMember, domain.RoleLibrarian:
	default:
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, rawRole)
	}
	return domain.Identity{BorrowerID: id, Role: role}, nil
}

func identityFromMetadata(ctx context.Context) (domain.Identity, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Identity{}, ErrUnauthenticated
	}
	return parseIdentity(first(md.Get(MetadataBorrowerID)), first(md.Get(MetadataRole)))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// actingBorrower returns the borrower a request operates on. Members always
// act for themselves; librarians may name someone else.
func actingBorrower(id domain.Identity, requested int64) (int64, error) {
	if requested == 0 || requested == id.BorrowerID {
		return id.BorrowerID, nil
	}
	if !id.IsLibrarian() {
		return 0, ErrForbidden
	}
	return requested, nil
}
