package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/usealtoal/predictarb/pkg/types"
)

// OrderClient handles order submission, status queries and cancellation
// against the Polymarket CLOB REST API. HMAC request signing and EIP-712
// order signing are unchanged from the teacher's implementation; the
// batch-submission endpoint it built around (PlaceOrdersBatch, a fixed
// YES/NO pair) is gone, replaced by the single-order primitive every leg
// of the per-leg execution protocol now goes through.
type OrderClient struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // Proxy address (maker/funder)
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	logger        *zap.Logger

	baseURL    string
	httpClient *http.Client
}

// OrderClientConfig holds configuration for the order client.
type OrderClientConfig struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	Address       string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger

	// BaseURL overrides the CLOB endpoint; defaults to the production
	// host. Tests point this at an httptest.Server.
	BaseURL string
}

// NewOrderClient creates a new order client.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKey := privateKey.Public()
		publicKeyECDSA, _ := publicKey.(*ecdsa.PublicKey)
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://clob.polymarket.com"
	}

	return &OrderClient{
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		logger:        cfg.Logger,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// GetMakerAddress returns the maker address (proxy if set, otherwise EOA).
func (c *OrderClient) GetMakerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}

// GetSignerAddress returns the signer address (always the EOA).
func (c *OrderClient) GetSignerAddress() string {
	return c.address
}

// GetSignatureType returns the signature type.
func (c *OrderClient) GetSignatureType() model.SignatureType {
	return c.signatureType
}

// PlaceSingleOrder signs and submits one order. It is the sole
// submission primitive: every leg of a multi-leg trade goes through it
// independently, per SPEC_FULL §4.13 step 2.
func (c *OrderClient) PlaceSingleOrder(ctx context.Context, orderData *model.OrderData) (*types.OrderSubmissionResponse, error) {
	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	sideStr := "BUY"
	if orderData.Side == model.SELL {
		sideStr = "SELL"
	}

	c.logger.Info("single-order-built",
		zap.String("maker", orderData.Maker),
		zap.String("signer", orderData.Signer),
		zap.String("token-id", orderData.TokenId),
		zap.String("side", sideStr))

	resp, err := c.submitOrder(ctx, signedOrder)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	return resp, nil
}

// SubmitLegOrder builds, rounds and signs the order for one leg of an
// arbitrage trade and submits it, returning the venue-assigned order ID.
// size is in shares (token units), matching domain.Opportunity.Volume.
func (c *OrderClient) SubmitLegOrder(ctx context.Context, tokenID string, price, size decimal.Decimal, tickSize, minOrderSize float64) (string, error) {
	makerAddress := c.GetMakerAddress()
	signerAddress := c.GetSignerAddress()

	sizePrecision, amountPrecision := getRoundingConfig(tickSize)

	priceF, _ := price.Float64()
	sizeF, _ := size.Float64()

	roundedSize := roundAmount(sizeF, sizePrecision)
	if roundedSize < minOrderSize {
		return "", fmt.Errorf("leg size %.4f below minimum %.4f for token %s", roundedSize, minOrderSize, tokenID)
	}

	makerUSD := roundAmount(roundedSize*priceF, amountPrecision)

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(roundedSize),
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        signerAddress,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	resp, err := c.PlaceSingleOrder(ctx, orderData)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("order rejected: %s", resp.ErrorMsg)
	}
	return resp.OrderID, nil
}

// GetOrder fetches the current state of a previously-submitted order.
func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*types.OrderQueryResponse, error) {
	req, err := c.newSignedRequest(ctx, http.MethodGet, "/order/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get order API error (status %d): %s", status, string(body))
	}

	var resp types.OrderQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order query response: %w", err)
	}
	return &resp, nil
}

// CancelOrder cancels a resting order. Any non-200 response, including
// one reporting the order as already filled, is returned as an error; the
// caller inspects the error only to decide whether cancellation itself failed.
func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) error {
	reqBody, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	req, err := c.newSignedRequest(ctx, http.MethodDelete, "/order", reqBody)
	if err != nil {
		return err
	}

	body, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("cancel order API error (status %d): %s", status, string(body))
	}
	return nil
}

// newSignedRequest builds an HMAC-signed CLOB request for method+path,
// matching the signature scheme submitOrder already used (timestamp +
// method + path + body, HMAC-SHA256 with the URL-safe-base64 secret).
func (c *OrderClient) newSignedRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signaturePayload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)
	return req, nil
}

func (c *OrderClient) do(req *http.Request) ([]byte, int, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, httpResp.StatusCode, nil
}

// convertToOrderJSON converts a signed order to JSON format.
func (c *OrderClient) convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func (c *OrderClient) submitOrder(ctx context.Context, order *model.SignedOrder) (*types.OrderSubmissionResponse, error) {
	jsonOrder := c.convertToOrderJSON(order)

	orderRequest := types.OrderSubmissionRequest{
		Order:     jsonOrder,
		Owner:     c.apiKey,
		OrderType: "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newSignedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", status, string(body))
	}

	var resp types.OrderSubmissionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

func usdToRawAmount(usd float64) string {
	rawAmount := int64(usd * 1000000)
	return fmt.Sprintf("%d", rawAmount)
}

// getRoundingConfig returns the precision for size and amount based on tick size.
func getRoundingConfig(tickSize float64) (sizePrecision int, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}

// roundAmount rounds an amount to the specified number of decimal places.
func roundAmount(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}
