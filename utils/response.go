package utils

import "github.com/gin-gonic/gin"

// ErrorBody is the uniform failure payload: every failure reaching the client
// is a JSON object with a single human readable message.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error writes a JSON error response with the given status code.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, ErrorBody{Error: message})
}

// Message writes a JSON confirmation response.
func Message(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}
