package rpcledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
	"github.com/swapmarket/swapd/pkg/circuitbreaker"
	"github.com/swapmarket/swapd/pkg/mathutil"
	"go.uber.org/ratelimit"
)

// ledgerService talks to a remote ledger node over JSON/HTTP. Requests are
// rate limited and guarded by a circuit breaker so a flapping node does not
// stall every take.
type ledgerService struct {
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewLedgerService returns a ports.Ledger backed by the ledger node at the
// given url, performing a health check before returning.
func NewLedgerService(
	apiURL string, requestTimeout time.Duration, requestsPerSecond int,
) (ports.Ledger, error) {
	svc := &ledgerService{
		apiURL:  apiURL,
		client:  &http.Client{Timeout: requestTimeout},
		breaker: circuitbreaker.NewCircuitBreaker("ledger"),
		limiter: ratelimit.New(requestsPerSecond),
	}

	if err := svc.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return svc, nil
}

type transferRequest struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferResponse struct {
	TxID string `json:"txid"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

func (s *ledgerService) Transfer(
	ctx context.Context, asset, from, to string, amount *big.Int,
) (*ports.TxReceipt, error) {
	body, _ := json.Marshal(transferRequest{
		Asset: asset, From: from, To: to, Amount: amount.String(),
	})

	resp, err := s.post(ctx, "/v1/transfers", body)
	if err != nil {
		return nil, err
	}

	var out transferResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, err
	}
	return &ports.TxReceipt{TxID: out.TxID}, nil
}

func (s *ledgerService) BalanceOf(
	ctx context.Context, asset, address string,
) (*big.Int, error) {
	path := fmt.Sprintf(
		"/v1/balances?asset=%s&address=%s",
		url.QueryEscape(asset), url.QueryEscape(address),
	)
	resp, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseAmountResponse(resp)
}

func (s *ledgerService) Allowance(
	ctx context.Context, asset, owner, spender string,
) (*big.Int, error) {
	if asset == domain.NativeAsset {
		return new(big.Int).Set(mathutil.MaxAmount), nil
	}

	path := fmt.Sprintf(
		"/v1/allowances?asset=%s&owner=%s&spender=%s",
		url.QueryEscape(asset), url.QueryEscape(owner), url.QueryEscape(spender),
	)
	resp, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseAmountResponse(resp)
}

func (s *ledgerService) healthCheck() error {
	_, err := s.get(context.Background(), "/v1/ping")
	return err
}

func (s *ledgerService) get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

func (s *ledgerService) post(
	ctx context.Context, path string, body []byte,
) ([]byte, error) {
	return s.do(ctx, http.MethodPost, path, body)
}

func (s *ledgerService) do(
	ctx context.Context, method, path string, body []byte,
) ([]byte, error) {
	s.limiter.Take()

	resp, err := s.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(
			ctx, method, s.apiURL+path, reader,
		)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"ledger node returned status %d: %s", res.StatusCode, string(data),
			)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.([]byte), nil
}

func parseAmountResponse(data []byte) (*big.Int, error) {
	var out amountResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(out.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("ledger node returned malformed amount %q", out.Amount)
	}
	return amount, nil
}
