// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Repositories use persistence models for database operations
//
// Structure:
// - order.go: Committed orders and their lines, buyers, and the catalog snapshot
// - location.go: Location lookup for shipping address normalization
package models
