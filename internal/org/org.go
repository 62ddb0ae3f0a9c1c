// Package org resolves department and section display names. Lookups here
// decorate views only; they never gate a lifecycle transition.
package org

import (
	"context"
	"fmt"

	"assetline/internal/domain"
	"assetline/internal/transport"
)

type Client struct {
	HTTP *transport.Client
}

func New(http *transport.Client) *Client {
	return &Client{HTTP: http}
}

func (c *Client) DepartmentByID(ctx context.Context, id int64) (domain.Department, error) {
	var dto struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.HTTP.Get(ctx, fmt.Sprintf("api/departments/%d", id), &dto); err != nil {
		return domain.Department{}, err
	}
	return domain.Department{ID: dto.ID, Name: dto.Name}, nil
}

func (c *Client) SectionByID(ctx context.Context, id int64) (domain.Section, error) {
	var dto struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		DepartmentID int64  `json:"department_id"`
	}
	if err := c.HTTP.Get(ctx, fmt.Sprintf("api/sections/%d", id), &dto); err != nil {
		return domain.Section{}, err
	}
	return domain.Section{ID: dto.ID, Name: dto.Name, DepartmentID: dto.DepartmentID}, nil
}
