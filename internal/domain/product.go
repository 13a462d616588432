package domain

import (
	"time"
)

// ImageAsset is a stored media asset referenced by its storage key.
type ImageAsset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Review is a product review embedded on the product document. Each user
// holds at most one review per product.
type Review struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// Product represents a product in the catalog. Images and reviews are
// embedded documents persisted as JSONB alongside the scalar columns.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Description  string       `json:"description"`
	Price        float64      `json:"price"`
	Category     string       `json:"category"`
	Stock        int          `json:"stock"`
	Images       []ImageAsset `json:"images"`
	Reviews      []Review     `json:"reviews"`
	NumOfReviews int          `json:"num_of_reviews"`
	Ratings      float64      `json:"ratings"`
	UserID       string       `json:"user_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ReviewByUser returns the index of the review left by the given user, or -1.
func (p *Product) ReviewByUser(userID string) int {
	for i := range p.Reviews {
		if p.Reviews[i].UserID == userID {
			return i
		}
	}
	return -1
}

// RecalculateRatings recomputes the ratings mean and review count from the
// embedded reviews. Ratings is 0 when there are no reviews.
func (p *Product) RecalculateRatings() {
	p.NumOfReviews = len(p.Reviews)
	if len(p.Reviews) == 0 {
		p.Ratings = 0
		return
	}
	var sum float64
	for _, rev := range p.Reviews {
		sum += rev.Rating
	}
	p.Ratings = sum / float64(len(p.Reviews))
}
