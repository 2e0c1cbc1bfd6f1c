package auth

import (
	"context"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"optiondesk/src/model"
)

type contextKey string

const AccountKey contextKey = "account"

func GetAccountFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*model.Account)
	return account, ok
}

func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

type accountFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Account, error)
}

// Middleware resolves the calling account from the X-Account-ID header set by
// the API gateway upstream. Token verification happens at the gateway; this
// service only needs the account row.
func Middleware(accounts accountFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-Account-ID")
			if header == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := strconv.ParseUint(header, 10, 64)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := accounts.FindByID(r.Context(), uint(id))
			if err != nil {
				logger.WithError(err).Error("failed to resolve account")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if account == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}
