// Package adi models CableLabs ADI 1.1 metadata packages: the XML document
// shape, typed App_Data accessors, asset identifier normalization, and the
// version classifier deciding how an incoming package relates to tracked
// state.
package adi
