package entity

import "time"

// Tipos de contraparte del directorio.
const (
	PartyTypeCustomer = "CUSTOMER"
	PartyTypeSupplier = "SUPPLIER"
	PartyTypeEmployee = "EMPLOYEE"
)

// Party es una entrada del directorio de contrapartes (clientes, proveedores,
// empleados). Lectura únicamente: el directorio lo administra otro módulo.
type Party struct {
	ID             string
	Name           string
	Phone          string
	Type           string
	LastActivityAt time.Time // última transacción conocida; entra en el desempate del matcher
}
