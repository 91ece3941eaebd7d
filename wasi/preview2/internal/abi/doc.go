// Package abi lowers WASI host functions to core wasm per the component
// model canonical ABI: signature flattening from WIT types, linear memory
// access and guest allocation through cabi_realloc.
package abi
