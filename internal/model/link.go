package model

import "time"

type Link struct {
	ID          int64     `json:"id"`
	CustomCode  string    `json:"customCode"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateLinkRequest struct {
	Title       string `json:"title" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
	CustomCode  string `json:"customCode"`
}

type UpdateLinkRequest struct {
	Title       string  `json:"title" binding:"required"`
	URL         string  `json:"url" binding:"required"`
	Description *string `json:"description"`
}

type LinkResponse struct {
	ID          int64     `json:"id"`
	CustomCode  string    `json:"customCode"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	ShortURL    string    `json:"shortUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
