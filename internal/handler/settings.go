package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
	"go.uber.org/zap"
)

// walletSettingKeys are the fields the wallet settings endpoint accepts.
var walletSettingKeys = []string{"serviceFee", "currency", "withdrawalSettings", "depositSettings"}

func (h *AdminHandler) GetAllSettings(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, h.settingsSvc.GetAll(c.Context()))
}

func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	namespace := c.Params("namespace")
	if !model.IsSettingsNamespace(namespace) {
		return h.respondError(c, service.ErrUnknownNamespace)
	}
	return ok(c, fiber.StatusOK, h.settingsSvc.Get(c.Context(), namespace))
}

type UpdateSectionRequest struct {
	Section string         `json:"section" validate:"required"`
	Data    model.Document `json:"data" validate:"required"`
}

// UpdateSection is the {section, data} form of settings updates
func (h *AdminHandler) UpdateSection(c *fiber.Ctx) error {
	var req UpdateSectionRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	return h.updateSettings(c, req.Section, req.Data, false)
}

func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var partial model.Document
	if err := c.BodyParser(&partial); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return h.updateSettings(c, c.Params("namespace"), partial, false)
}

// UpdateWalletSettings merges fee and limit changes key by key
func (h *AdminHandler) UpdateWalletSettings(c *fiber.Ctx) error {
	var body model.Document
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	partial := model.Document{}
	for _, key := range walletSettingKeys {
		if value, found := body[key]; found && value != nil {
			partial[key] = value
		}
	}
	if len(partial) == 0 {
		return fail(c, fiber.StatusBadRequest, "no wallet settings given")
	}
	if fee, found := partial["serviceFee"].(float64); found && fee < 0 {
		return h.respondError(c, service.ErrInvalidAmount)
	}

	if err := h.updateSettingsDoc(c, model.SettingsWallet, partial, true); err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, h.settingsSvc.Wallet(c.Context()))
}

func (h *AdminHandler) updateSettings(c *fiber.Ctx, namespace string, partial model.Document, deep bool) error {
	if err := h.updateSettingsDoc(c, namespace, partial, deep); err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, h.settingsSvc.Get(c.Context(), namespace))
}

func (h *AdminHandler) updateSettingsDoc(c *fiber.Ctx, namespace string, partial model.Document, deep bool) error {
	update := h.settingsSvc.Update
	if deep {
		update = h.settingsSvc.UpdateDeep
	}
	if _, err := update(c.Context(), namespace, partial); err != nil {
		return err
	}

	keys := make([]string, 0, len(partial))
	for key := range partial {
		keys = append(keys, key)
	}
	err := h.adminSvc.LogAction(c.Context(), nil, middleware.GetUserID(c), model.AdminActionUpdateSettings, nil, fiber.Map{
		"section": namespace,
		"keys":    keys,
	})
	if err != nil {
		h.logger.Error("failed to log settings update", zap.String("section", namespace), zap.Error(err))
	}
	return nil
}
