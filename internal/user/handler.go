package user

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/user-registry/internal/upload"
)

const pictureField = "profile_picture"

// Handler serves the user CRUD endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the CRUD endpoints on r, typically the /api/users group.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/", h.listUsers)
	r.Get("/:id", h.getUser)
	r.Post("/", h.createUser)
	r.Put("/:id", h.updateUser)
	r.Delete("/:id", h.deleteUser)
}

func (h *Handler) listUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "users": ToList(users)})
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}

	user, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": ToResponse(user)})
}

func (h *Handler) createUser(c *fiber.Ctx) error {
	in, err := parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	created, emailSent, err := h.service.Register(c.UserContext(), in, pictureFile(c))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"message":   "User registered successfully",
		"user":      ToResponse(created),
		"emailSent": emailSent,
	})
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}
	in, err := parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.service.Update(c.UserContext(), id, in, pictureFile(c)); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User updated successfully"})
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted successfully"})
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	status, message := fiber.StatusInternalServerError, "Database error"
	switch {
	case errors.Is(err, ErrValidation):
		status, message = fiber.StatusBadRequest, "Name, email, and phone are required"
	case errors.Is(err, ErrEmailExists):
		status, message = fiber.StatusBadRequest, "Email already exists"
	case errors.Is(err, upload.ErrInvalidFile):
		status, message = fiber.StatusBadRequest, "Only image files are allowed"
	case errors.Is(err, upload.ErrTooLarge):
		status, message = fiber.StatusBadRequest, "Profile picture is too large"
	case errors.Is(err, ErrNotFound):
		status, message = fiber.StatusNotFound, "User not found"
	case errors.Is(err, ErrStorage):
		message = "Failed to store profile picture"
	}

	if status >= fiber.StatusInternalServerError {
		h.logger.Error("user request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// parseID accepts positive integers within the id column's int4 range;
// anything else cannot match a row.
func parseID(c *fiber.Ctx) (int, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 32)
	if err != nil || !validID(int(id)) {
		return 0, false
	}
	return int(id), true
}

// parseInput reads name, email and phone from a JSON, urlencoded or
// multipart body. An empty body yields an empty Input so validation reports
// the missing fields.
func parseInput(c *fiber.Ctx) (Input, error) {
	var in Input
	if len(c.Body()) == 0 {
		return in, nil
	}
	if err := c.BodyParser(&in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func pictureFile(c *fiber.Ctx) *multipart.FileHeader {
	fh, err := c.FormFile(pictureField)
	if err != nil {
		return nil
	}
	return fh
}
