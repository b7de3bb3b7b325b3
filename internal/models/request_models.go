package models

import "encoding/json"

// UpdateFieldRequest is the body of PUT /trip/fields/:field.
type UpdateFieldRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// AddMemberRequest represents the request body for inviting a new member.
type AddMemberRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateMemberRequest represents the request body for editing a member's name and title.
type UpdateMemberRequest struct {
	Name  string `json:"name" binding:"required"`
	Title string `json:"title"`
}

// AddDateRequest represents the request body for adding a day to the schedule.
type AddDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// RenameDateRequest moves a day to a new date key.
type RenameDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// ShiftTimesRequest shifts every item of a day by Minutes (may be negative).
type ShiftTimesRequest struct {
	Minutes int `json:"minutes"`
}
