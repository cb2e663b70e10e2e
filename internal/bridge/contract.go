package bridge

import (
	"encoding/json"
	"fmt"

	"chatbridge/internal/config"
	apperrors "chatbridge/internal/errors"
)

// NewContract returns the Contract implementation for a configured contract
// name. Unknown names are a configuration error.
func NewContract(name string) (Contract, error) {
	switch name {
	case config.ContractChat:
		return chatContract{}, nil
	case config.ContractDataQuery:
		return dataQueryContract{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend contract %q", apperrors.ErrConfiguration, name)
	}
}

// chatContract speaks the general inference endpoint:
//
//	POST /api/chat {"message", "model", "temperature", "max_tokens"}
//	-> {"response", "model", "usage"}
type chatContract struct{}

type chatRequest struct {
	Message     string  `json:"message"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type chatResponse struct {
	Response string         `json:"response"`
	Model    string         `json:"model"`
	Usage    map[string]any `json:"usage"`
}

func (chatContract) Path() string { return "/api/chat" }

func (chatContract) EncodeRequest(query, modelID string) (any, error) {
	return chatRequest{
		Message:     query,
		Model:       modelID,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func (chatContract) DecodeResponse(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not decode response: %s", string(body))
	}
	return resp.Response, nil
}

// dataQueryContract speaks the natural-language data query endpoint:
//
//	POST /api/data/query {"question"}
//	-> {"success", "answer"} or {"success": false, "error"}
type dataQueryContract struct{}

type dataQueryRequest struct {
	Question string `json:"question"`
}

type dataQueryResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
	Error   string `json:"error"`
}

func (dataQueryContract) Path() string { return "/api/data/query" }

func (dataQueryContract) EncodeRequest(query, _ string) (any, error) {
	return dataQueryRequest{Question: query}, nil
}

func (dataQueryContract) DecodeResponse(body []byte) (string, error) {
	var resp dataQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not decode response: %s", string(body))
	}
	if !resp.Success {
		// The backend reported a handled failure; surface its message.
		return "", fmt.Errorf("%w: %s", apperrors.ErrBackend, resp.Error)
	}
	return resp.Answer, nil
}
