package grpc

// proto.go holds the hand-written service descriptor for
// fraudledger.v1.FraudLedgerService. Messages are plain Go structs carried
// by the JSON codec registered below, so clients must call with
// grpc.CallContentSubtype(CodecName).

import (
	"context"
	"encoding/json"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// CodecName is the content subtype of the service messages.
const CodecName = "json"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fraudledger.v1.FraudLedgerService"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// FraudLedgerServiceServer is the server API for FraudLedgerService.
type FraudLedgerServiceServer interface {
	ProcessTransaction(context.Context, *ProcessTransactionRequest) (*ProcessTransactionResponse, error)
	ProcessBatch(context.Context, *ProcessBatchRequest) (*ProcessBatchResponse, error)
	ValidateLedger(context.Context, *ValidateLedgerRequest) (*ValidateLedgerResponse, error)
	GetLedgerStats(context.Context, *GetLedgerStatsRequest) (*GetLedgerStatsResponse, error)
	GetTransactionHistory(context.Context, *GetTransactionHistoryRequest) (*BlocksResponse, error)
	GetHighRiskBlocks(context.Context, *GetHighRiskBlocksRequest) (*BlocksResponse, error)
	RegisterPolicy(context.Context, *RegisterPolicyRequest) (*PolicyMsgResponse, error)
	DeactivatePolicy(context.Context, *PolicyIDRequest) (*PolicyMsgResponse, error)
	GetPolicy(context.Context, *PolicyIDRequest) (*PolicyMsgResponse, error)
	ListActivePolicies(context.Context, *ListActivePoliciesRequest) (*ListPoliciesResponse, error)
	GetPolicyStats(context.Context, *GetPolicyStatsRequest) (*GetPolicyStatsResponse, error)
	ListAlerts(context.Context, *ListAlertsRequest) (*ListAlertsResponse, error)
	ResolveAlert(context.Context, *ResolveAlertRequest) (*ResolveAlertResponse, error)
	GetFraudStatistics(context.Context, *GetFraudStatisticsRequest) (*GetFraudStatisticsResponse, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error)
	mustEmbedUnimplementedFraudLedgerServiceServer()
}

// UnimplementedFraudLedgerServiceServer provides forward-compatible default implementations.
type UnimplementedFraudLedgerServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedFraudLedgerServiceServer) ProcessTransaction(context.Context, *ProcessTransactionRequest) (*ProcessTransactionResponse, error) {
	return nil, unimplemented("ProcessTransaction")
}
func (UnimplementedFraudLedgerServiceServer) ProcessBatch(context.Context, *ProcessBatchRequest) (*ProcessBatchResponse, error) {
	return nil, unimplemented("ProcessBatch")
}
func (UnimplementedFraudLedgerServiceServer) ValidateLedger(context.Context, *ValidateLedgerRequest) (*ValidateLedgerResponse, error) {
	return nil, unimplemented("ValidateLedger")
}
func (UnimplementedFraudLedgerServiceServer) GetLedgerStats(context.Context, *GetLedgerStatsRequest) (*GetLedgerStatsResponse, error) {
	return nil, unimplemented("GetLedgerStats")
}
func (UnimplementedFraudLedgerServiceServer) GetTransactionHistory(context.Context, *GetTransactionHistoryRequest) (*BlocksResponse, error) {
	return nil, unimplemented("GetTransactionHistory")
}
func (UnimplementedFraudLedgerServiceServer) GetHighRiskBlocks(context.Context, *GetHighRiskBlocksRequest) (*BlocksResponse, error) {
	return nil, unimplemented("GetHighRiskBlocks")
}
func (UnimplementedFraudLedgerServiceServer) RegisterPolicy(context.Context, *RegisterPolicyRequest) (*PolicyMsgResponse, error) {
	return nil, unimplemented("RegisterPolicy")
}
func (UnimplementedFraudLedgerServiceServer) DeactivatePolicy(context.Context, *PolicyIDRequest) (*PolicyMsgResponse, error) {
	return nil, unimplemented("DeactivatePolicy")
}
func (UnimplementedFraudLedgerServiceServer) GetPolicy(context.Context, *PolicyIDRequest) (*PolicyMsgResponse, error) {
	return nil, unimplemented("GetPolicy")
}
func (UnimplementedFraudLedgerServiceServer) ListActivePolicies(context.Context, *ListActivePoliciesRequest) (*ListPoliciesResponse, error) {
	return nil, unimplemented("ListActivePolicies")
}
func (UnimplementedFraudLedgerServiceServer) GetPolicyStats(context.Context, *GetPolicyStatsRequest) (*GetPolicyStatsResponse, error) {
	return nil, unimplemented("GetPolicyStats")
}
func (UnimplementedFraudLedgerServiceServer) ListAlerts(context.Context, *ListAlertsRequest) (*ListAlertsResponse, error) {
	return nil, unimplemented("ListAlerts")
}
func (UnimplementedFraudLedgerServiceServer) ResolveAlert(context.Context, *ResolveAlertRequest) (*ResolveAlertResponse, error) {
	return nil, unimplemented("ResolveAlert")
}
func (UnimplementedFraudLedgerServiceServer) GetFraudStatistics(context.Context, *GetFraudStatisticsRequest) (*GetFraudStatisticsResponse, error) {
	return nil, unimplemented("GetFraudStatistics")
}
func (UnimplementedFraudLedgerServiceServer) ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	return nil, unimplemented("ListTransactions")
}
func (UnimplementedFraudLedgerServiceServer) mustEmbedUnimplementedFraudLedgerServiceServer() {}

// RegisterFraudLedgerServiceServer registers srv with the gRPC server.
func RegisterFraudLedgerServiceServer(s grpclib.ServiceRegistrar, srv FraudLedgerServiceServer) {
	s.RegisterService(&fraudLedgerServiceDesc, srv)
}

var fraudLedgerServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FraudLedgerServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "ProcessTransaction", Handler: unaryHandler("ProcessTransaction", FraudLedgerServiceServer.ProcessTransaction)},
		{MethodName: "ProcessBatch", Handler: unaryHandler("ProcessBatch", FraudLedgerServiceServer.ProcessBatch)},
		{MethodName: "ValidateLedger", Handler: unaryHandler("ValidateLedger", FraudLedgerServiceServer.ValidateLedger)},
		{MethodName: "GetLedgerStats", Handler: unaryHandler("GetLedgerStats", FraudLedgerServiceServer.GetLedgerStats)},
		{MethodName: "GetTransactionHistory", Handler: unaryHandler("GetTransactionHistory", FraudLedgerServiceServer.GetTransactionHistory)},
		{MethodName: "GetHighRiskBlocks", Handler: unaryHandler("GetHighRiskBlocks", FraudLedgerServiceServer.GetHighRiskBlocks)},
		{MethodName: "RegisterPolicy", Handler: unaryHandler("RegisterPolicy", FraudLedgerServiceServer.RegisterPolicy)},
		{MethodName: "DeactivatePolicy", Handler: unaryHandler("DeactivatePolicy", FraudLedgerServiceServer.DeactivatePolicy)},
		{MethodName: "GetPolicy", Handler: unaryHandler("GetPolicy", FraudLedgerServiceServer.GetPolicy)},
		{MethodName: "ListActivePolicies", Handler: unaryHandler("ListActivePolicies", FraudLedgerServiceServer.ListActivePolicies)},
		{MethodName: "GetPolicyStats", Handler: unaryHandler("GetPolicyStats", FraudLedgerServiceServer.GetPolicyStats)},
		{MethodName: "ListAlerts", Handler: unaryHandler("ListAlerts", FraudLedgerServiceServer.ListAlerts)},
		{MethodName: "ResolveAlert", Handler: unaryHandler("ResolveAlert", FraudLedgerServiceServer.ResolveAlert)},
		{MethodName: "GetFraudStatistics", Handler: unaryHandler("GetFraudStatistics", FraudLedgerServiceServer.GetFraudStatistics)},
		{MethodName: "ListTransactions", Handler: unaryHandler("ListTransactions", FraudLedgerServiceServer.ListTransactions)},
	},
	Streams: []grpclib.StreamDesc{},
}

// methodHandler is the signature grpc.MethodDesc expects of Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error)

// unaryHandler adapts a typed server method to a methodHandler, running it
// through the server's interceptor chain when one is set.
func unaryHandler[Req, Resp any](
	method string,
	call func(FraudLedgerServiceServer, context.Context, *Req) (*Resp, error),
) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FraudLedgerServiceServer), ctx, req)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FraudLedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}
