package library

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"scorelib/internal/config"
	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
)

var noSlashes = regexp.MustCompile(`^[^/]+$`)

func folderNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, config.MaxFolderNameLength),
		validation.Match(noSlashes).Error("folder name cannot contain slashes"),
	}
}

var roleRule = validation.In(models.RoleViewer, models.RoleEditor).Error("role must be viewer or editor")

// invalid wraps an ozzo error so callers can match domain.ErrValidation.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func validateCreateFolder(req *libsvc.CreateFolderRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, folderNameRules()...),
	))
}

func validateCreateSharedFolder(req *libsvc.CreateSharedFolderRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, folderNameRules()...),
		validation.Field(&req.Invites, validation.Length(0, config.MaxInvites)),
	)
	if err != nil {
		return invalid(err)
	}
	for i := range req.Invites {
		inv := &req.Invites[i]
		err := validation.ValidateStruct(inv,
			validation.Field(&inv.Email, validation.Required, is.EmailFormat),
			validation.Field(&inv.Role, validation.Required, roleRule),
		)
		if err != nil {
			return invalid(fmt.Errorf("invites[%d]: %w", i, err))
		}
	}
	return nil
}

func validateUpdateRole(req *libsvc.UpdateRoleRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.CollaboratorID, validation.Required),
		validation.Field(&req.Role, validation.Required, roleRule),
	))
}

func validateFileName(name string) error {
	return invalid(validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxFileNameLength),
		validation.Match(noSlashes).Error("file name cannot contain slashes"),
	))
}

func validateFlag(flag models.Flag) error {
	return invalid(validation.Validate(flag,
		validation.Required,
		validation.In(models.FlagFavorite, models.FlagPracticed).Error("flag must be isFavorite or practiced"),
	))
}
