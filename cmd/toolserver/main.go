// Toolserver is the function deployed behind the gateway. It receives tool
// invocations on the protected route and routes them through the dispatch
// table; the tools themselves are thin, the wiring is the point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/agentrig/agentrig/internal/logging"
	"github.com/agentrig/agentrig/internal/tools"
)

type invokeRequest struct {
	SessionID string          `json:"sessionId"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

type invokeResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newHandler(dispatcher *tools.Dispatcher) func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		var in invokeRequest
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			return respond(http.StatusBadRequest, invokeResponse{Error: "request body is not valid JSON"}), nil
		}

		result, err := dispatcher.Dispatch(ctx, in.Tool, in.Arguments)
		if err != nil {
			var unknown *tools.UnknownToolError
			if errors.As(err, &unknown) {
				return respond(http.StatusNotFound, invokeResponse{SessionID: in.SessionID, Error: err.Error()}), nil
			}
			logging.Error("tool failed", "tool", in.Tool, "error", err)
			return respond(http.StatusInternalServerError, invokeResponse{SessionID: in.SessionID, Error: err.Error()}), nil
		}

		return respond(http.StatusOK, invokeResponse{SessionID: in.SessionID, Result: result}), nil
	}
}

func respond(status int, body invokeResponse) events.APIGatewayV2HTTPResponse {
	data, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

func main() {
	logging.Init("info")

	dispatcher := tools.NewDispatcher()
	dispatcher.Register("markdown_to_email", markdownToEmail)
	dispatcher.Register("list_tools", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return dispatcher.Names(), nil
	})

	lambda.Start(newHandler(dispatcher))
}
