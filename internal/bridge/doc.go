// Package bridge implementa el protocolo de login-challenge contra el
// Authorization Server externo.
//
// El flujo es una pipeline secuencial tipada:
//
//	resolver → autenticación (password o social) → reconciler → acceptor → terminator
//
// Cada etapa consume el resultado tipado de la anterior, lo que hace
// verificables en compilación dos invariantes del protocolo:
//
//   - fail-closed: Accept exige un Subject, y un Subject solo sale de una
//     autenticación o reconciliación exitosa
//   - single-use: el Challenge se consume exactamente una vez; ninguna etapa
//     reintenta después de haber contactado al Authorization Server
//
// El bridge no posee sesiones: después de aceptar el challenge, la sesión
// local transitoria se destruye y el Authorization Server queda como única
// fuente de verdad.
package bridge
