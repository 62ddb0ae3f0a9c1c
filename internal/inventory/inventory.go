// Package inventory fetches device records and decodes their wire enums.
package inventory

import (
	"context"
	"fmt"
	"log"

	"assetline/internal/codec"
	"assetline/internal/domain"
	"assetline/internal/transport"
)

type Client struct {
	HTTP   *transport.Client
	Logger *log.Logger
}

func New(http *transport.Client) *Client {
	return &Client{HTTP: http}
}

// deviceDTO is the record as the backend sends it, enums still integers.
type deviceDTO struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DeviceType       int    `json:"device_type"`
	OperationalState int    `json:"operational_state"`
	DepartmentID     int64  `json:"department_id"`
	DepartmentName   string `json:"department_name"`
	SectionID        *int64 `json:"section_id"`
	SectionName      string `json:"section_name"`
	AcquisitionDate  string `json:"acquisition_date"`
}

func (d deviceDTO) decode(logger *log.Logger) domain.Device {
	return domain.Device{
		ID:              d.ID,
		Name:            d.Name,
		Type:            codec.DeviceTypeOrDefault(d.DeviceType, logger),
		State:           codec.OperationalStateOrDefault(d.OperationalState, logger),
		DepartmentID:    d.DepartmentID,
		DepartmentName:  d.DepartmentName,
		SectionID:       d.SectionID,
		SectionName:     d.SectionName,
		AcquisitionDate: d.AcquisitionDate,
	}
}

func (c *Client) DeviceByID(ctx context.Context, id int64) (domain.Device, error) {
	var dto deviceDTO
	if err := c.HTTP.Get(ctx, fmt.Sprintf("api/devices/%d", id), &dto); err != nil {
		return domain.Device{}, err
	}
	return dto.decode(c.Logger), nil
}

func (c *Client) Devices(ctx context.Context) ([]domain.Device, error) {
	var dtos []deviceDTO
	if err := c.HTTP.Get(ctx, "api/devices", &dtos); err != nil {
		return nil, err
	}
	devices := make([]domain.Device, 0, len(dtos))
	for _, dto := range dtos {
		devices = append(devices, dto.decode(c.Logger))
	}
	return devices, nil
}
