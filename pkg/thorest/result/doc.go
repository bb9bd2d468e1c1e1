/*
Package result contains the response types of the Thor REST API.
*/
package result
