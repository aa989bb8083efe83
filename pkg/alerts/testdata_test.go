package alerts_test

import (
	"github.com/shopspring/decimal"
	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

func sampleNotification() alerts.Notification {
	return alerts.Notification{
		Path:      model.PathEvent,
		Scope:     "Stores Group",
		Recipient: "stores@example.com",
		Items: []model.AlertPayload{
			{
				ItemCode:     "ITEM-1",
				ItemName:     "Widget <small>",
				Warehouse:    "Stores - W1",
				ProjectedQty: decimal.NewFromInt(4),
				ReorderLevel: decimal.NewFromInt(10),
				ReorderQty:   decimal.NewFromInt(20),
			},
		},
	}
}
