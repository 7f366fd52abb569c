package fx

import (
	"github.com/orgball2608/storyshare/internal/repositories/profile"
	"github.com/orgball2608/storyshare/internal/repositories/session"
	"github.com/orgball2608/storyshare/internal/repositories/story"
	"github.com/orgball2608/storyshare/internal/repositories/user"
	"go.uber.org/fx"
)

var Module = fx.Options(
	user.Module,
	session.Module,
	profile.Module,
	story.Module,
)
