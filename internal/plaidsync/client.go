package plaidsync

import (
	"context"
	"fmt"

	"github.com/plaid/plaid-go/v29/plaid"
)

// PlaidClient is the concrete implementation of Syncer using the official Plaid SDK.
type PlaidClient struct {
	api *plaid.APIClient
}

// Ensure PlaidClient implements Syncer
var _ Syncer = (*PlaidClient)(nil)

// NewPlaidClient creates a client for the given environment ("sandbox" or
// "production") authenticated with the client id and secret.
func NewPlaidClient(clientID, secret, environment string) (*PlaidClient, error) {
	env, err := plaidEnvironment(environment)
	if err != nil {
		return nil, fmt.Errorf("NewPlaidClient: %w", err)
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)
	configuration.UseEnvironment(env)

	return &PlaidClient{api: plaid.NewAPIClient(configuration)}, nil
}

// SyncTransactions calls /transactions/sync once.
func (c *PlaidClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error) {
	request := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != "" {
		request.SetCursor(cursor)
	}

	resp, _, err := c.api.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: %w", describePlaidError(err))
	}

	return pageFromResponse(resp), nil
}

func plaidEnvironment(name string) (plaid.Environment, error) {
	switch name {
	case "sandbox":
		return plaid.Sandbox, nil
	case "production", "":
		return plaid.Production, nil
	default:
		return "", fmt.Errorf("unknown plaid environment %q", name)
	}
}

// describePlaidError surfaces the Plaid error code (RATE_LIMIT_EXCEEDED,
// ITEM_LOGIN_REQUIRED, ...) when the response body carries one.
func describePlaidError(err error) error {
	perr, convErr := plaid.ToPlaidError(err)
	if convErr != nil || perr.GetErrorCode() == "" {
		return err
	}
	return fmt.Errorf("%s (%s): %w", perr.GetErrorCode(), perr.GetErrorMessage(), err)
}
