package bybit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletResult struct {
	List []struct {
		AccountType string `json:"accountType"`
		Coin        []struct {
			Coin          string `json:"coin"`
			WalletBalance string `json:"walletBalance"`
			Locked        string `json:"locked"`
			TotalOrderIM  string `json:"totalOrderIM"`
		} `json:"coin"`
	} `json:"list"`
}

type feeResult struct {
	List []struct {
		Symbol       string `json:"symbol"`
		MakerFeeRate string `json:"makerFeeRate"`
		TakerFeeRate string `json:"takerFeeRate"`
	} `json:"list"`
}

type instrumentResult struct {
	List []struct {
		Symbol        string `json:"symbol"`
		BaseCoin      string `json:"baseCoin"`
		QuoteCoin     string `json:"quoteCoin"`
		Status        string `json:"status"`
		LotSizeFilter struct {
			BasePrecision string `json:"basePrecision"`
		} `json:"lotSizeFilter"`
		PriceFilter struct {
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
	} `json:"list"`
}

// GetAccounts lists unified-account coins. The coin name doubles as account id.
func (c *Client) GetAccounts(ctx context.Context) ([]exchange.Account, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Account, error) {
		return c.walletBalance(ctx, "")
	})
}

// GetAccount returns the balance of one coin
func (c *Client) GetAccount(ctx context.Context, accountID string) (*exchange.Account, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Account, error) {
		accounts, err := c.walletBalance(ctx, accountID)
		if err != nil {
			return nil, err
		}
		for _, a := range accounts {
			if strings.EqualFold(a.ID, accountID) {
				return &a, nil
			}
		}
		// a coin that was never funded is absent from the wallet listing
		return &exchange.Account{ID: accountID, Currency: accountID}, nil
	})
}

func (c *Client) walletBalance(ctx context.Context, coin string) ([]exchange.Account, error) {
	params := map[string]interface{}{"accountType": accountTypeUnified}
	if coin != "" {
		params["coin"] = coin
	}

	result, err := c.api().NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, transportError("get wallet balance", err)
	}
	var wallet walletResult
	if err := decodeResult("get wallet balance", result, &wallet); err != nil {
		return nil, err
	}
	return walletAccounts(wallet), nil
}

func walletAccounts(wallet walletResult) []exchange.Account {
	var accounts []exchange.Account
	for _, list := range wallet.List {
		for _, coin := range list.Coin {
			balance := parseDecimal(coin.WalletBalance)
			hold := parseDecimal(coin.Locked).Add(parseDecimal(coin.TotalOrderIM))
			available := balance.Sub(hold)
			if available.IsNegative() {
				available = decimal.Zero
			}
			accounts = append(accounts, exchange.Account{
				ID:        coin.Coin,
				Currency:  coin.Coin,
				Balance:   balance,
				Available: available,
				Hold:      hold,
			})
		}
	}
	return accounts
}

// GetFees returns the spot fee tier for the configured product
func (c *Client) GetFees(ctx context.Context) (*exchange.Fees, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Fees, error) {
		params := map[string]interface{}{"category": categorySpot}
		if c.productID != "" {
			params["symbol"] = Symbol(c.productID)
		}

		result, err := c.api().NewUtaBybitServiceWithParams(params).GetFeeRates(ctx)
		if err != nil {
			return nil, transportError("get fee rates", err)
		}
		var fees feeResult
		if err := decodeResult("get fee rates", result, &fees); err != nil {
			return nil, err
		}
		if len(fees.List) == 0 {
			return nil, fmt.Errorf("get fee rates: empty fee list")
		}
		return &exchange.Fees{
			MakerFeeRate: parseDecimal(fees.List[0].MakerFeeRate),
			TakerFeeRate: parseDecimal(fees.List[0].TakerFeeRate),
		}, nil
	})
}

// GetProducts lists spot instruments in BASE-QUOTE form
func (c *Client) GetProducts(ctx context.Context) ([]exchange.Product, error) {
	return exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Product, error) {
		params := map[string]interface{}{"category": categorySpot}
		if c.productID != "" {
			params["symbol"] = Symbol(c.productID)
		}

		result, err := c.api().NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return nil, transportError("get instruments", err)
		}
		var instruments instrumentResult
		if err := decodeResult("get instruments", result, &instruments); err != nil {
			return nil, err
		}
		return instrumentProducts(instruments), nil
	})
}

func instrumentProducts(instruments instrumentResult) []exchange.Product {
	products := make([]exchange.Product, 0, len(instruments.List))
	for _, inst := range instruments.List {
		products = append(products, exchange.Product{
			ID:             exchange.ProductID(inst.BaseCoin, inst.QuoteCoin),
			BaseCurrency:   inst.BaseCoin,
			QuoteCurrency:  inst.QuoteCoin,
			BaseIncrement:  inst.LotSizeFilter.BasePrecision,
			QuoteIncrement: inst.PriceFilter.TickSize,
		})
	}
	return products
}

// GetProfiles returns the configured sub-member UIDs, sorted by name
func (c *Client) GetProfiles(ctx context.Context) ([]exchange.Profile, error) {
	profiles := make([]exchange.Profile, 0, len(c.cfg.Profiles))
	for name, uid := range c.cfg.Profiles {
		profiles = append(profiles, exchange.Profile{ID: uid, Name: name, Active: true})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// TransferFunds moves coin between two member UIDs with a universal transfer
func (c *Client) TransferFunds(ctx context.Context, params exchange.TransferParams) (*exchange.TransferResult, error) {
	transferID := uuid.NewString()
	apiParams := map[string]interface{}{
		"transferId":      transferID,
		"coin":            params.Currency,
		"amount":          params.Amount.String(),
		"fromMemberId":    params.FromProfileID,
		"toMemberId":      params.ToProfileID,
		"fromAccountType": accountTypeUnified,
		"toAccountType":   accountTypeUnified,
	}

	result, err := c.api().NewUtaBybitServiceWithParams(apiParams).CreateUniversalTransfer(ctx)
	if err != nil {
		return nil, transportError("universal transfer", err)
	}
	var ack struct {
		TransferID string `json:"transferId"`
		Status     string `json:"status"`
	}
	if err := decodeResult("universal transfer", result, &ack); err != nil {
		return nil, err
	}
	if ack.TransferID == "" {
		ack.TransferID = transferID
	}
	return &exchange.TransferResult{ID: ack.TransferID, Status: ack.Status}, nil
}
