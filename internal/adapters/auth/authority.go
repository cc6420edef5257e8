package auth

import (
	"context"
	"fmt"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
)

// ClassRoster answers whether a user belongs to a class.
type ClassRoster interface {
	IsClassMember(ctx context.Context, classID domain.ClassID, userID domain.UserID) (bool, error)
}

// Authority implements core.MembershipAuthority with JWT credentials.
type Authority struct {
	signer *Signer
	roster ClassRoster
}

func NewAuthority(signer *Signer, roster ClassRoster) *Authority {
	return &Authority{signer: signer, roster: roster}
}

func (a *Authority) ResolveIdentity(_ context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing token", core.ErrUnauthorized)
	}
	claims, err := a.signer.ValidateToken(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	user, err := domain.NewUser(domain.UserID(claims.UserID), claims.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	return user, nil
}

func (a *Authority) IsMember(ctx context.Context, classID domain.ClassID, userID domain.UserID) (bool, error) {
	return a.roster.IsClassMember(ctx, classID, userID)
}
