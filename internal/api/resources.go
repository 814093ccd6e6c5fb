package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gestion-smac/smacctl/internal/entity"
)

// Resource paths, one per entity collection.
const (
	pathLines    = "/api/lines"
	pathDevices  = "/api/devices"
	pathAgents   = "/api/agents"
	pathServices = "/api/services"
	pathModels   = "/api/models"
	pathUsers    = "/api/users"
	pathHistory  = "/api/histories"
)

// listResource fetches a whole collection.
func listResource[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// createResource posts a payload and returns the server's record, which
// carries the authoritative ID.
func createResource[T any](ctx context.Context, c *Client, path string, payload T) (T, error) {
	var out T
	if err := c.do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return out, err
	}

	return out, nil
}

// updateResource patches the changed fields only (the ModifiedValues diff)
// and returns the server's updated record.
func updateResource[T any](ctx context.Context, c *Client, path string, id int64, diff map[string]any) (T, error) {
	var out T
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/%d", path, id), diff, &out); err != nil {
		return out, err
	}

	return out, nil
}

func (c *Client) deleteResource(ctx context.Context, path string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", path, id), nil, nil)
}

// Lines.

func (c *Client) ListLines(ctx context.Context) ([]entity.Line, error) {
	return listResource[entity.Line](ctx, c, pathLines)
}

func (c *Client) CreateLine(ctx context.Context, line entity.Line) (entity.Line, error) {
	return createResource(ctx, c, pathLines, line)
}

func (c *Client) UpdateLine(ctx context.Context, id int64, diff map[string]any) (entity.Line, error) {
	return updateResource[entity.Line](ctx, c, pathLines, id, diff)
}

func (c *Client) DeleteLine(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathLines, id)
}

// Devices.

func (c *Client) ListDevices(ctx context.Context) ([]entity.Device, error) {
	return listResource[entity.Device](ctx, c, pathDevices)
}

func (c *Client) CreateDevice(ctx context.Context, device entity.Device) (entity.Device, error) {
	return createResource(ctx, c, pathDevices, device)
}

func (c *Client) UpdateDevice(ctx context.Context, id int64, diff map[string]any) (entity.Device, error) {
	return updateResource[entity.Device](ctx, c, pathDevices, id, diff)
}

func (c *Client) DeleteDevice(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathDevices, id)
}

// Agents.

func (c *Client) ListAgents(ctx context.Context) ([]entity.Agent, error) {
	return listResource[entity.Agent](ctx, c, pathAgents)
}

func (c *Client) CreateAgent(ctx context.Context, agent entity.Agent) (entity.Agent, error) {
	return createResource(ctx, c, pathAgents, agent)
}

func (c *Client) UpdateAgent(ctx context.Context, id int64, diff map[string]any) (entity.Agent, error) {
	return updateResource[entity.Agent](ctx, c, pathAgents, id, diff)
}

func (c *Client) DeleteAgent(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathAgents, id)
}

// Services, models, users: plain reference entities.

func (c *Client) ListServices(ctx context.Context) ([]entity.Service, error) {
	return listResource[entity.Service](ctx, c, pathServices)
}

func (c *Client) CreateService(ctx context.Context, service entity.Service) (entity.Service, error) {
	return createResource(ctx, c, pathServices, service)
}

func (c *Client) UpdateService(ctx context.Context, id int64, diff map[string]any) (entity.Service, error) {
	return updateResource[entity.Service](ctx, c, pathServices, id, diff)
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathServices, id)
}

func (c *Client) ListModels(ctx context.Context) ([]entity.Model, error) {
	return listResource[entity.Model](ctx, c, pathModels)
}

func (c *Client) CreateModel(ctx context.Context, model entity.Model) (entity.Model, error) {
	return createResource(ctx, c, pathModels, model)
}

func (c *Client) UpdateModel(ctx context.Context, id int64, diff map[string]any) (entity.Model, error) {
	return updateResource[entity.Model](ctx, c, pathModels, id, diff)
}

func (c *Client) DeleteModel(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathModels, id)
}

func (c *Client) ListUsers(ctx context.Context) ([]entity.User, error) {
	return listResource[entity.User](ctx, c, pathUsers)
}

func (c *Client) CreateUser(ctx context.Context, user entity.User) (entity.User, error) {
	return createResource(ctx, c, pathUsers, user)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, diff map[string]any) (entity.User, error) {
	return updateResource[entity.User](ctx, c, pathUsers, id, diff)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.deleteResource(ctx, pathUsers, id)
}

// History is read-only from the client; the server appends an entry on
// every mutation.
func (c *Client) ListHistory(ctx context.Context) ([]entity.History, error) {
	return listResource[entity.History](ctx, c, pathHistory)
}
