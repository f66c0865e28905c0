package coinbase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
)

// GetAccount fetches one currency account
func (c *Client) GetAccount(ctx context.Context, accountID string) (*exchange.Account, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Account, error) {
		var resp accountResponse
		if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, &resp); err != nil {
			return nil, err
		}
		account := toAccount(resp)
		return &account, nil
	})
}

// GetAccounts lists the accounts of the profile the API key belongs to
func (c *Client) GetAccounts(ctx context.Context) ([]exchange.Account, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Account, error) {
		var resp []accountResponse
		if err := c.do(ctx, http.MethodGet, "/accounts", nil, &resp); err != nil {
			return nil, err
		}
		accounts := make([]exchange.Account, 0, len(resp))
		for _, a := range resp {
			accounts = append(accounts, toAccount(a))
		}
		return accounts, nil
	})
}

// GetFees returns the current maker and taker rates
func (c *Client) GetFees(ctx context.Context) (*exchange.Fees, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Fees, error) {
		var resp feesResponse
		if err := c.do(ctx, http.MethodGet, "/fees", nil, &resp); err != nil {
			return nil, err
		}
		return &exchange.Fees{MakerFeeRate: resp.MakerFeeRate, TakerFeeRate: resp.TakerFeeRate}, nil
	})
}

// GetProfiles lists the profiles (portfolios) of the account
func (c *Client) GetProfiles(ctx context.Context) ([]exchange.Profile, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Profile, error) {
		var resp []profileResponse
		if err := c.do(ctx, http.MethodGet, "/profiles", nil, &resp); err != nil {
			return nil, err
		}
		profiles := make([]exchange.Profile, 0, len(resp))
		for _, p := range resp {
			profiles = append(profiles, exchange.Profile{ID: p.ID, Name: p.Name, Active: p.Active})
		}
		return profiles, nil
	})
}

// GetProducts lists tradable pairs with their increments
func (c *Client) GetProducts(ctx context.Context) ([]exchange.Product, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Product, error) {
		var resp []productResponse
		if err := c.do(ctx, http.MethodGet, "/products", nil, &resp); err != nil {
			return nil, err
		}
		products := make([]exchange.Product, 0, len(resp))
		for _, p := range resp {
			products = append(products, exchange.Product{
				ID:             p.ID,
				BaseCurrency:   p.BaseCurrency,
				QuoteCurrency:  p.QuoteCurrency,
				BaseIncrement:  p.BaseIncrement,
				QuoteIncrement: p.QuoteIncrement,
			})
		}
		return products, nil
	})
}

// TransferFunds moves currency between two profiles. It is never retried.
func (c *Client) TransferFunds(ctx context.Context, params exchange.TransferParams) (*exchange.TransferResult, error) {
	req := transferRequest{
		From:     params.FromProfileID,
		To:       params.ToProfileID,
		Currency: params.Currency,
		Amount:   params.Amount.String(),
	}
	if err := c.do(ctx, http.MethodPost, "/profiles/transfer", req, nil); err != nil {
		return nil, err
	}
	return &exchange.TransferResult{Status: "completed"}, nil
}

func toAccount(a accountResponse) exchange.Account {
	return exchange.Account{
		ID:        a.ID,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Available: a.Available,
		Hold:      a.Hold,
		ProfileID: a.ProfileID,
	}
}
