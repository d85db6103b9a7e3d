// Package resp provides the JSON response helpers of the pulse HTTP API.
//
// Successful responses carry the payload directly, or {"message": ...} when
// there is none. Failures carry a business code from ecode:
//
//	{
//	  "code": -404,
//	  "message": "alert does not exist",
//	  "errors": {...}
//	}
//
// # Usage
//
//	resp.Success(w, alerts)
//	resp.WithStatusCode(w, http.StatusCreated, created)
//	resp.Fail(w, resp.NotFound(ecode.NotExist("alert")))
package resp
