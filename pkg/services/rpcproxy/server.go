/*
Package rpcproxy implements an HTTP server exposing Ethereum JSON-RPC API on
top of a VeChainThor node REST interface. Requests are dispatched via
ethrpc.Mapper, so the proxy itself doesn't keep any state except for
connection to the node.
*/
package rpcproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/nspcc-dev/thor-go/pkg/ethrpc"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Server is an Ethereum JSON-RPC proxy server.
type Server struct {
	http    []*http.Server
	config  config.Proxy
	mapper  *ethrpc.Mapper
	log     *zap.Logger
	started *atomic.Bool
	errChan chan error
}

// defaultMaxRequestBodyBytes is used when MaxRequestBodyBytes isn't configured.
const defaultMaxRequestBodyBytes = 5 * 1024 * 1024

// New creates a new Server for the given backend. Addresses from
// conf.Accounts are parsed here and returned by eth_accounts. Errors
// occurring after Start are sent to errChan.
func New(backend ethrpc.Backend, conf config.Proxy, log *zap.Logger, errChan chan error) (*Server, error) {
	accounts := make([]common.Address, 0, len(conf.Accounts))
	for _, a := range conf.Accounts {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid proxy account %q", a)
		}
		accounts = append(accounts, common.HexToAddress(a))
	}
	if conf.MaxRequestBodyBytes <= 0 {
		conf.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
		log.Info("MaxRequestBodyBytes is not set or wrong, setting default value", zap.Int("MaxRequestBodyBytes", defaultMaxRequestBodyBytes))
	}
	addrs := conf.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return &Server{
		http:    srvs,
		config:  conf,
		mapper:  ethrpc.NewMapper(backend, accounts),
		log:     log.With(zap.String("service", "RPCProxy")),
		started: atomic.NewBool(false),
		errChan: errChan,
	}, nil
}

// Name returns service name.
func (s *Server) Name() string {
	return "rpcproxy"
}

// Addresses returns the set of addresses the server listens on, they're
// the actual ones after a successful Start.
func (s *Server) Addresses() []string {
	res := make([]string, 0, len(s.http))
	for _, srv := range s.http {
		res = append(res, srv.Addr)
	}
	return res
}

// Start runs the proxy on all configured addresses. Listening errors are
// sent to errChan passed to New(). The Server only starts once, subsequent
// calls to Start are no-op.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.log.Info("RPC proxy is not enabled")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		s.log.Info("RPC proxy already started")
		return
	}
	for _, srv := range s.http {
		srv.Handler = http.HandlerFunc(s.handleHTTPRequest)
		s.log.Info("starting RPC proxy", zap.String("endpoint", srv.Addr))

		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.errChan <- fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			return
		}
		srv.Addr = ln.Addr().String() // set Addr to the actual address
		go func(srv *http.Server) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("failed to start RPC proxy", zap.String("endpoint", srv.Addr), zap.Error(err))
				s.errChan <- err
			}
		}(srv)
	}
}

// Shutdown stops the proxy if it's running. The instance that was stopped
// can not be started again.
func (s *Server) Shutdown() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	for _, srv := range s.http {
		s.log.Info("shutting down RPC proxy", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			s.log.Warn("error during RPC proxy shutdown", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	_ = s.log.Sync()
}

func (s *Server) handleHTTPRequest(w http.ResponseWriter, httpRequest *http.Request) {
	if httpRequest.Method == http.MethodOptions && s.config.EnableCORSWorkaround { // Preflight CORS.
		setCORSOriginHeaders(w.Header())
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Max-Age", "21600") // 6 hours.
		return
	}

	if httpRequest.Method != http.MethodPost {
		s.writeHTTPErrorResponse(w, ethrpc.NewInvalidParamsError(
			fmt.Sprintf("invalid method '%s', please retry with 'POST'", httpRequest.Method)))
		return
	}

	body := http.MaxBytesReader(w, httpRequest.Body, int64(s.config.MaxRequestBodyBytes))
	reqs, isBatch, err := ethrpc.DecodeRequests(body)
	if err != nil {
		s.writeHTTPErrorResponse(w, ethrpc.NewParseError(err.Error()))
		return
	}

	resps := make([]*ethrpc.Response, len(reqs))
	for i := range reqs {
		resps[i] = s.handleRequest(&reqs[i])
	}
	if isBatch {
		s.writeHTTPServerResponse(w, reqs, resps, resps)
		return
	}
	s.writeHTTPServerResponse(w, reqs, resps, resps[0])
}

func (s *Server) handleRequest(req *ethrpc.Request) *ethrpc.Response {
	req.Method = escapeForLog(req.Method) // No valid method name will be changed by it.

	s.log.Debug("processing rpc request",
		zap.String("method", req.Method),
		zap.Int("params", len(req.Params)))

	start := time.Now()
	defer func() { addReqTimeMetric(req.Method, time.Since(start)) }()

	return s.mapper.Handle(req)
}

// logRequestError is a request error logger.
func (s *Server) logRequestError(r *ethrpc.Request, jsonErr *ethrpc.Error) {
	logFields := []zap.Field{
		zap.Int64("code", jsonErr.Code),
	}
	if len(jsonErr.Data) != 0 {
		logFields = append(logFields, zap.String("cause", jsonErr.Data))
	}
	if r != nil {
		logFields = append(logFields, zap.String("method", r.Method))
	}

	logText := "Error encountered with rpc request"
	switch jsonErr.Code {
	case ethrpc.InternalServerErrorCode:
		s.log.Error(logText, logFields...)
	default:
		s.log.Info(logText, logFields...)
	}
}

// writeHTTPErrorResponse writes an error response to the ResponseWriter.
func (s *Server) writeHTTPErrorResponse(w http.ResponseWriter, jsonErr *ethrpc.Error) {
	resp := ethrpc.NewResponse(&ethrpc.Request{}, nil, jsonErr)
	s.writeHTTPServerResponse(w, nil, []*ethrpc.Response{resp}, resp)
}

func setCORSOriginHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Access-Control-Allow-Headers, Authorization, X-Requested-With")
}

// writeHTTPServerResponse writes out either a single response or a batch
// (body), reqs and resps are the same-length request/response pairs used
// for logging.
func (s *Server) writeHTTPServerResponse(w http.ResponseWriter, reqs []ethrpc.Request, resps []*ethrpc.Response, body any) {
	// Errors can happen in many places and we can only catch ALL of them here.
	for i, resp := range resps {
		if resp.Error == nil {
			continue
		}
		var req *ethrpc.Request
		if i < len(reqs) {
			req = &reqs[i]
		}
		s.logRequestError(req, resp.Error)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if s.config.EnableCORSWorkaround {
		setCORSOriginHeaders(w.Header())
	}
	if single, ok := body.(*ethrpc.Response); ok && single.Error != nil {
		w.WriteHeader(ethrpc.HTTPStatus(single.Error))
	}

	encoder := json.NewEncoder(w)
	err := encoder.Encode(body)
	if err != nil {
		s.log.Error("Error encountered while encoding response", zap.Error(err), zap.Int("responses", len(resps)))
	}
}

func escapeForLog(in string) string {
	return strings.Map(func(c rune) rune {
		if !strconv.IsGraphic(c) {
			return -1
		}
		return c
	}, in)
}
