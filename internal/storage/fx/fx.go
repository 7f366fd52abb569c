package fx

import (
	"context"
	"fmt"

	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/internal/storage/firebasestore"
	"github.com/orgball2608/storyshare/internal/storage/fsstore"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	Config *config.Config
	Logger logger.Logger
}

// New picks the object store backend named by STORAGE_BACKEND.
func New(opts Opts) (storage.ObjectStore, error) {
	switch opts.Config.Storage.Backend {
	case "", "disk":
		opts.Logger.Info("Using disk object store", "Dir", opts.Config.Storage.Dir)
		return fsstore.New(opts.Config.Storage.Dir, opts.Config.App.PublicURL)
	case "firebase":
		opts.Logger.Info("Using firebase object store", "Bucket", opts.Config.Firebase.Bucket)
		return firebasestore.New(context.Background(), firebasestore.Opts{
			Bucket:          opts.Config.Firebase.Bucket,
			CredentialsFile: opts.Config.Firebase.CredentialsFile,
			CredentialsJSON: opts.Config.Firebase.CredentialsJSON,
			Logger:          opts.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Config.Storage.Backend)
	}
}

var Module = fx.Module("object_storage",
	fx.Provide(New),
)
