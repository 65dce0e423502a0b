package marche

import (
	"context"
	"net/http"
)

// RequestCode submits POST /auth/demander-code
func (c *Client) RequestCode(ctx context.Context, req CodeRequest) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/auth/demander-code", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyCode submits POST /auth/verifier-code
func (c *Client) VerifyCode(ctx context.Context, req CodeVerification) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/auth/verifier-code", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
