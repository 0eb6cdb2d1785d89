package models

import (
	"fmt"
	"time"
)

// Product is a catalog entry a customer can buy and customize
type Product struct {
	ID           string   `json:"id" yaml:"id" parquet:"id"`
	Name         string   `json:"name" yaml:"name" parquet:"name"`
	Category     string   `json:"category" yaml:"category" parquet:"category"`
	ImageURL     string   `json:"imageUrl" yaml:"imageUrl" parquet:"image_url"`
	PriceCents   int64    `json:"priceCents" yaml:"priceCents" parquet:"price_cents"`
	Rating       float64  `json:"rating,omitempty" yaml:"rating,omitempty" parquet:"rating,optional"`
	ReviewsCount int64    `json:"reviewsCount,omitempty" yaml:"reviewsCount,omitempty" parquet:"reviews_count,optional"`
	Colors       []string `json:"colors,omitempty" yaml:"colors,omitempty" parquet:"colors,list"`
}

// Customization records how a cart item was designed
type Customization struct {
	BaseProductID   string `json:"baseProductId"`
	PrintAreaID     string `json:"printAreaId"`
	SceneSnapshot   string `json:"sceneSnapshot"`   // serialized scene JSON
	PreviewDataURL  string `json:"previewDataUrl"`  // data:image/jpeg;base64,...
	ProductionImage string `json:"productionImage"` // URL of the stored print PNG
}

// CartItem is one line in a shopping cart
type CartItem struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ImageURL      string         `json:"imageUrl"`
	PriceCents    int64          `json:"priceCents"`
	Quantity      int            `json:"quantity"`
	Customization *Customization `json:"customization,omitempty"`
	AddedAt       time.Time      `json:"addedAt"`
}

// CustomItemID builds the id of a customized line item.
func CustomItemID(productID, areaID string, at time.Time) string {
	return fmt.Sprintf("custom-%s-%s-%d", productID, areaID, at.UnixMilli())
}

// CustomItemName is the display name of a customized line item.
func CustomItemName(productName, areaLabel string) string {
	return fmt.Sprintf("%s - %s (Custom)", productName, areaLabel)
}
