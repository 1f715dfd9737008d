package auth

import (
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// RegisterInput creates a customer account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
}

// RegisterVendorInput creates a vendor organization plus its first user.
type RegisterVendorInput struct {
	RegisterInput
	VendorName   string
	ContactEmail string
	Address      *types.Address
}

// LoginInput authenticates an existing user. IP feeds the rate limiter.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// Session is the issued token pair plus the authenticated user.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
