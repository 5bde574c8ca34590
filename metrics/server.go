package metrics

import (
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Handler serves the metrics exposition page.
type Handler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// StartServer starts a dedicated metrics listener on listen and serves handler at path.
// Returns nil if metrics are disabled.
func StartServer(enabled bool, listen, path string, handler Handler, logger *zap.Logger) (*fasthttp.Server, error) {
	if !enabled {
		logger.Info("Metrics collection disabled")
		return nil, nil
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	server := &fasthttp.Server{
		Handler:            newRequestHandler(path, handler),
		Name:               "CFPurge-Metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 * 1024,
		Concurrency:        100,
	}

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", ln.Addr().String()),
			zap.String("path", path))

		if err := server.Serve(ln); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", listen),
				zap.Error(err))
		}
	}()

	return server, nil
}

func newRequestHandler(path string, handler Handler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == path {
			handler.ServeHTTP(ctx)
			return
		}

		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}
