package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// NewClient dials Temporal under cfg.Retry. It returns a nil client and no
// error when TEMPORAL_ADDRESS is unset.
func NewClient(log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if !cfg.Enabled() {
		if log != nil {
			log.Warn("TEMPORAL_ADDRESS not set; recalibration runs in-process")
		}
		return nil, nil
	}
	opts, err := clientOptions(log, cfg, true)
	if err != nil {
		return nil, err
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	var c temporalsdkclient.Client
	attempts, err := Retry(context.Background(), cfg.Retry, nil,
		func(attempt int, err error) {
			if log != nil {
				log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
			}
		},
		func(ctx context.Context) error {
			dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()
			var derr error
			c, derr = temporalsdkclient.DialContext(dialCtx, opts)
			return derr
		},
	)
	if err != nil {
		return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}
	if log != nil {
		log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempts)
	}

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(context.Background(), cfg, log); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// clientOptions builds dial options. Namespace-scoped clients carry the
// namespace header; the namespace admin client must not.
func clientOptions(log *logger.Logger, cfg Config, scoped bool) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address}
	if log != nil {
		opts.Logger = log
	}
	if scoped {
		opts.Namespace = cfg.Namespace
	}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return temporalsdkclient.Options{}, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

// EnsureNamespace registers cfg.Namespace when it does not exist yet. Only
// meant for local or self-hosted clusters.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if !cfg.Enabled() || namespace == "" {
		return nil
	}
	opts, err := clientOptions(log, cfg, false)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace ensure: init namespace client: %w", err)
	}
	defer nsClient.Close()

	policy := cfg.Retry
	if policy.MaxWait <= 0 || policy.MaxWait > 10*time.Second {
		policy.MaxWait = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, policy.MaxWait)
	defer cancel()

	_, err = Retry(ctx, policy, isRetryableRPC,
		func(attempt int, err error) {
			if log != nil {
				log.Warn("Temporal namespace ensure retrying", "namespace", namespace, "attempt", attempt, "error", err)
			}
		},
		func(ctx context.Context) error {
			_, err := nsClient.Describe(ctx, namespace)
			var nfe *serviceerror.NamespaceNotFound
			if err == nil || !errors.As(err, &nfe) {
				return err
			}
			days := cfg.retentionDays()
			err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        namespace,
				Description:                      "psychometrics auto-registered namespace",
				WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(days) * 24 * time.Hour),
			})
			var already *serviceerror.NamespaceAlreadyExists
			if errors.As(err, &already) {
				return nil
			}
			if err == nil && log != nil {
				log.Info("Registered Temporal namespace", "namespace", namespace, "retention_days", days)
			}
			return err
		},
	)
	if err != nil {
		return fmt.Errorf("temporal namespace ensure (namespace=%s): %w", namespace, err)
	}
	return nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH are both required for mTLS")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert/key: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return tlsCfg, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: invalid CA pem")
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}
