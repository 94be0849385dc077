package api

// DefaultBaseURL is the single source of truth for the API target.
const DefaultBaseURL = "http://localhost:8787/api"
