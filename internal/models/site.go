package models

// Site is a tenant of the deployment. Only the home site's Name is used, as
// the issuer shown in authenticator apps.
type Site struct {
	ID     int
	Domain string
	Name   string
}
