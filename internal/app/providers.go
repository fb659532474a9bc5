package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/dashsync/internal/config"
	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
	"github.com/MrSnakeDoc/dashsync/internal/remote/dataserver"
	"github.com/MrSnakeDoc/dashsync/internal/remote/gdrive"
	"github.com/MrSnakeDoc/dashsync/internal/secret"
	"github.com/MrSnakeDoc/dashsync/internal/syncer"
)

// secretEnvPrefix maps "/dashsync/drive-client-id" to DASHSYNC_DRIVE_CLIENT_ID
// with the env secret backend.
const secretEnvPrefix = "DASHSYNC_"

// newFactory builds remote adapters from the configuration.
func newFactory(cfg *config.Config, log logger.Logger) syncer.Factory {
	return func(ctx context.Context, provider domain.Provider, prev domain.SyncState) (remote.Adapter, error) {
		switch provider {
		case domain.ProviderHTTPServer:
			return dataserver.New(cfg.DataServerURL, log, dataserver.WithTimeout(cfg.RemoteTimeout)), nil
		case domain.ProviderCloudDrive:
			return newDrive(ctx, cfg, log, prev)
		}
		return nil, domain.Validation("build adapter", fmt.Errorf("no adapter for provider %q", provider))
	}
}

func newDrive(ctx context.Context, cfg *config.Config, log logger.Logger, prev domain.SyncState) (remote.Adapter, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
	defer cancel()

	resolver, err := secret.NewResolver(lookupCtx, cfg.SecretBackend, secretEnvPrefix)
	if err != nil {
		return nil, domain.Validation("drive secrets", err)
	}
	values, err := secret.ResolveAll(lookupCtx, resolver,
		cfg.DriveClientIDParam, cfg.DriveClientSecretParam, cfg.DriveRefreshTokenParam)
	if err != nil {
		return nil, domain.Validation("drive secrets", err)
	}

	creds := gdrive.Credentials{
		ClientID:     values[cfg.DriveClientIDParam],
		ClientSecret: values[cfg.DriveClientSecretParam],
		RefreshToken: values[cfg.DriveRefreshTokenParam],
	}
	// the token source outlives the request that enabled sync; refreshes
	// are bounded by the adapter timeout instead
	adapter, err := gdrive.NewFromCredentials(context.WithoutCancel(ctx), creds, log,
		gdrive.WithTimeout(cfg.RemoteTimeout),
		gdrive.WithFileID(prev.RemoteFileID))
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
