package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"ledgerly/internal/interfaces/scheduler"
	"ledgerly/internal/shared/config"
	"ledgerly/internal/shared/middleware"
)

// Sync and refresh calls page through the aggregator, so writes get a long deadline.
const (
	readTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Minute
	idleTimeout  = 60 * time.Second
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler      http.Handler
	Addr         string
	TLSEnabled   bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
	AllowedHosts []string
}

// StartServers creates and starts the main server and optional redirect server.
// Returns the main server and redirect server (nil if not enabled).
func StartServers(scfg ServerConfig) (*http.Server, *http.Server) {
	srv := &http.Server{
		Addr:              scfg.Addr,
		Handler:           scfg.Handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	var redirectSrv *http.Server
	if scfg.TLSEnabled && scfg.RedirectHTTP {
		redirectSrv = newRedirectServer(scfg.AllowedHosts)
		go func() {
			log.Println("HTTP redirect server starting on :80")
			if err := redirectSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP redirect server error: %v", err)
			}
		}()
	}

	go func() {
		var err error
		if scfg.TLSEnabled {
			log.Printf("HTTPS server starting on %s", scfg.Addr)
			err = srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath)
		} else {
			log.Printf("HTTP server starting on %s", scfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	return srv, redirectSrv
}

// GracefulShutdown stops accepting requests first, then drains the scheduler.
func GracefulShutdown(srv, redirectSrv *http.Server, sched *scheduler.Scheduler, timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if redirectSrv != nil {
		if err := redirectSrv.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP redirect server: %v", err)
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down main server: %v", err)
	}

	if sched != nil {
		sched.Shutdown(timeout)
	}

	log.Println("Server stopped")
}

// newRedirectServer answers plain HTTP with a permanent redirect to HTTPS on an allowed host.
func newRedirectServer(allowedHosts []string) *http.Server {
	return &http.Server{
		Addr:              ":80",
		Handler:           redirectHandler(allowedHosts),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      readTimeout,
		IdleTimeout:       idleTimeout,
	}
}

func redirectHandler(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}

		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
			if strings.Contains(h, ":") {
				host = "[" + h + "]"
			}
		}

		http.Redirect(w, r, "https://"+host+r.RequestURI, http.StatusMovedPermanently)
	})
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
	}
}
