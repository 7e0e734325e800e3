package tasks

import (
	"context"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/launcher"
)

// PublishBuild uploads a game folder with the external build loader. The
// loader path is remembered in the settings file for the next run.
func (s *Service) PublishBuild(ctx context.Context, form PublishForm) error {
	loader := form.LoaderPath
	if loader == "" && s.settings != nil {
		loader = s.settings.BuildLoader()
	}

	return s.track(ctx, TaskPublish, 0, form.GameFolder, func(ctx context.Context, run *models.TaskRun) error {
		if loader == "" {
			return errs.Validation("build loader path is required")
		}
		if s.settings != nil && form.LoaderPath != "" && form.LoaderPath != s.settings.BuildLoader() {
			if err := s.settings.SetBuildLoader(form.LoaderPath); err != nil {
				logrus.WithError(err).Warn("Failed to remember build loader path")
			}
		}

		return s.publish(ctx, launcher.PublishRequest{
			LauncherKey: form.LauncherKey,
			GameFolder:  form.GameFolder,
			LoaderPath:  loader,
			Description: form.Description,
			Visibility:  form.Visibility,
		})
	})
}
