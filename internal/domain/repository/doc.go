// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, memoria). Las implementaciones
// concretas viven en internal/store/.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//   - El bridge referencia usuarios, no los posee: las únicas mutaciones que
//     hace son las del reconciler (link/extend) y la creación en sign-up.
package repository
