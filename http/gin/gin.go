// Package gin provides a Gin-compatible surface for the relay and payments
// API. It is a thin adapter: route handling translates gin.Context to the
// shared API operations in the http package.
package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
	relayhttp "github.com/BuFi007/autopay-go/http"
)

// Register mounts the relay and payments routes on a Gin router. The routes
// mirror the chi handler in the http package.
//
// Example usage:
//
//	r := gin.Default()
//	ginx.Register(r, relayhttp.Config{
//	    Forwarder: fwd,
//	    Engine:    engine,
//	    Store:     store,
//	})
//	r.Run(":8080")
func Register(router gin.IRouter, cfg relayhttp.Config) {
	api := relayhttp.NewAPI(cfg)

	relay := router.Group("/relay")
	relay.POST("/execute", handleRelay(api))
	relay.GET("/nonce/:address", handleNonce(api))

	pay := router.Group("/payments")
	pay.POST("/execute", handleExecute(api))
	pay.GET("/:payer/:payee", handleAgreement(api))
	pay.GET("/:payer/:payee/can-execute", handleCanExecute(api))
}

func handleRelay(api *relayhttp.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body encoding.SignedRequestJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			abortWithError(c, autopay.NewError(autopay.ErrCodeInvalidRequest,
				"malformed request body", autopay.ErrInvalidRequest))
			return
		}

		resp, err := api.Relay(c.Request.Context(), body)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, resp)
	}
}

func handleNonce(api *relayhttp.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := api.Nonce(c.Param("address"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, resp)
	}
}

func handleExecute(api *relayhttp.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params encoding.ExecuteParams
		if err := c.ShouldBindJSON(&params); err != nil {
			abortWithError(c, autopay.NewError(autopay.ErrCodeInvalidRequest,
				"malformed request body", autopay.ErrInvalidRequest))
			return
		}

		resp, err := api.ExecutePayment(c.Request.Context(), params)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, resp)
	}
}

func handleAgreement(api *relayhttp.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := api.Agreement(c.Param("payer"), c.Param("payee"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, resp)
	}
}

func handleCanExecute(api *relayhttp.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := api.CanExecute(c.Param("payer"), c.Param("payee"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, resp)
	}
}

// abortWithError translates an API error to the shared status mapping and
// wire error body.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(relayhttp.ErrorStatus(err), relayhttp.NewErrorResponse(err))
}
