// Package docs provides generated OpenAPI documentation.
//
// adoread API
//
//	@title			adoread API
//	@version		1.0
//	@description	Reading assistant API: in-context definitions, document chat, document pagination and reading suggestions.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/adoread
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/adoread/serve.go -o ./swagger --parseDependency --parseInternal
