package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/middleware"
	"github.com/raceday-mx/raceday-backend/internal/services"
)

type adminDeleteInput struct {
	targetID uuid.UUID
	password string
}

type assignRolesInput struct {
	targetID uuid.UUID
	roles    []string
}

type revokeRoleInput struct {
	targetID uuid.UUID
	role     string
}

type AdminHandler struct {
	listUsers  func(context.Context, *action.Session, dto.AdminUserQuery) action.Result[*dto.AdminUserList]
	createUser func(context.Context, *action.Session, dto.CreateInternalUserRequest) action.Result[*dto.UserResponse]
	deleteUser func(context.Context, *action.Session, adminDeleteInput) action.Result[dto.MessageResponse]
	assign     func(context.Context, *action.Session, assignRolesInput) action.Result[dto.MessageResponse]
	revoke     func(context.Context, *action.Session, revokeRoleInput) action.Result[dto.MessageResponse]
}

func NewAdminHandler(admin *services.AdminService, accounts *services.AccountService, resolver *access.Resolver) *AdminHandler {
	h := &AdminHandler{}
	internal := action.Options{RequireInternal: true}

	h.listUsers = action.Wrap(resolver, internal,
		func(ctx context.Context, actor *access.UserContext, q dto.AdminUserQuery) (*dto.AdminUserList, error) {
			return admin.ListUsers(ctx, actor, q)
		})

	h.createUser = action.Wrap(resolver, internal,
		func(ctx context.Context, actor *access.UserContext, req dto.CreateInternalUserRequest) (*dto.UserResponse, error) {
			return admin.CreateInternalUser(ctx, actor, req)
		})

	h.deleteUser = action.Wrap(resolver, internal,
		func(ctx context.Context, actor *access.UserContext, in adminDeleteInput) (dto.MessageResponse, error) {
			if err := accounts.AdminDeleteUser(ctx, actor, in.targetID, in.password); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "user deleted"}, nil
		})

	h.assign = action.Wrap(resolver, internal,
		func(ctx context.Context, actor *access.UserContext, in assignRolesInput) (dto.MessageResponse, error) {
			if err := admin.AssignExternalRoles(ctx, actor, in.targetID, in.roles); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "roles assigned"}, nil
		})

	h.revoke = action.Wrap(resolver, internal,
		func(ctx context.Context, actor *access.UserContext, in revokeRoleInput) (dto.MessageResponse, error) {
			if err := admin.RevokeExternalRole(ctx, actor, in.targetID, in.role); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "role revoked"}, nil
		})

	return h
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var q dto.AdminUserQuery
	if err := c.QueryParser(&q); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.listUsers(c.Context(), middleware.SessionFromCtx(c), q))
}

func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateInternalUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.createUser(c.Context(), middleware.SessionFromCtx(c), req))
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, action.FailKind[dto.MessageResponse](action.KindInvalidInput))
	}
	var req dto.AdminDeleteUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.deleteUser(c.Context(), middleware.SessionFromCtx(c),
		adminDeleteInput{targetID: targetID, password: req.Password}))
}

func (h *AdminHandler) AssignRoles(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, action.FailKind[dto.MessageResponse](action.KindInvalidInput))
	}
	var req dto.AssignRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.assign(c.Context(), middleware.SessionFromCtx(c),
		assignRolesInput{targetID: targetID, roles: req.Roles}))
}

func (h *AdminHandler) RevokeRole(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, action.FailKind[dto.MessageResponse](action.KindInvalidInput))
	}
	return respond(c, h.revoke(c.Context(), middleware.SessionFromCtx(c),
		revokeRoleInput{targetID: targetID, role: c.Params("role")}))
}
