package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/services"
)

// Operations accepted in the "operation" field of an Analyze request
const (
	OperationStats    = "stats"
	OperationTrend    = "trend"
	OperationForecast = "forecast"
	OperationDetect   = "detect"
	OperationRealTime = "realtime"
	OperationHistory  = "history"
	OperationMethods  = "methods"
)

// AnalyticsHandler implements AnalyticsServiceServer on the analytics service
type AnalyticsHandler struct {
	logger    *logging.Logger
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new handler
func NewAnalyticsHandler(logger *logging.Logger, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{logger: logger, analytics: analytics}
}

// envelope carries the routing fields shared by every operation
type envelope struct {
	Operation string `json:"operation"`
	Series    string `json:"series"`
	Limit     int    `json:"limit"`
}

// Analyze decodes req into the request type of its operation, runs it and
// returns the response as a struct
func (h *AnalyticsHandler) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	var resp interface{}
	switch env.Operation {
	case OperationStats:
		var r models.StatsRequest
		if err = decode(raw, &r); err == nil {
			resp, err = h.analytics.Stats(ctx, &r)
		}
	case OperationTrend:
		var r models.TrendRequest
		if err = decode(raw, &r); err == nil {
			resp, err = h.analytics.Trend(ctx, &r)
		}
	case OperationForecast:
		var r models.ForecastRequest
		if err = decode(raw, &r); err == nil {
			resp, err = h.analytics.Forecast(ctx, &r)
		}
	case OperationDetect:
		var r models.DetectRequest
		if err = decode(raw, &r); err == nil {
			resp, err = h.analytics.Detect(ctx, &r)
		}
	case OperationRealTime:
		var r models.RealTimeRequest
		if err = decode(raw, &r); err == nil {
			resp, err = h.analytics.RealTime(ctx, env.Series, &r)
		}
	case OperationHistory:
		resp, err = h.analytics.History(ctx, env.Series, env.Limit)
	case OperationMethods:
		resp = h.analytics.Methods()
	case "":
		return nil, status.Error(codes.InvalidArgument, "operation is required")
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown operation: %s", env.Operation)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := toStruct(resp)
	if err != nil {
		h.logger.Error("Failed to encode gRPC response", "operation", env.Operation, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func decode(raw []byte, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes. Errors that already carry
// a status pass through.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return status.Error(codes.Internal, err.Error())
	}

	msg := fmt.Sprintf("%s: %s", svcErr.Code, svcErr.Message)
	switch svcErr.HTTPStatus() {
	case http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, msg)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, msg)
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests:
		return status.Error(codes.ResourceExhausted, msg)
	case http.StatusServiceUnavailable:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
