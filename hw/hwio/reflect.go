package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// InitRegs initializes the registers of a bank structure according to their
// "hwio" struct tags. Supported options:
//
//	reset=0x12      initial value (Reg8)
//	rwmask=0xF0     writable bits (Reg8), others are read-only
//	readonly        reject writes
//	writeonly       reject reads
//	rcb[=Method]    read callback, default method name is Read<FIELD>
//	wcb[=Method]    write callback, default method name is Write<FIELD>
//	pcb[=Method]    peek callback, default method name is Peek<FIELD>
//	size=0x100      size of a Mem or Device area
//	vsize=0x400     virtual (mirrored) size of a Mem area
//
// Field names are upper-cased to build default method names, so a field
// named Ctrl with "wcb" binds to WriteCTRL.
func InitRegs(data any) error {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return errors.New("InitRegs: expected pointer to struct")
	}
	val = val.Elem()
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("%s.%s: hwio tag on unexported field", typ.Name(), field.Name)
		}
		opts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}

		fptr := val.Field(i).Addr().Interface()
		switch reg := fptr.(type) {
		case *Reg8:
			err = initReg8(reg, field.Name, opts, val.Addr())
		case *Mem:
			err = initMem(reg, field.Name, opts, val.Addr())
		case *Device:
			err = initDevice(reg, field.Name, opts, val.Addr())
		default:
			err = fmt.Errorf("unsupported hwio type %T", reg)
		}
		if err != nil {
			return fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
	}
	return nil
}

func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

type tagOpts map[string]string

func parseTag(tag string) (tagOpts, error) {
	opts := make(tagOpts)
	for _, kv := range strings.Split(tag, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "offset", "bank", "reset", "rwmask", "size", "vsize",
			"readonly", "writeonly", "rcb", "wcb", "pcb":
		default:
			return nil, fmt.Errorf("unknown hwio option %q", k)
		}
		opts[k] = v
	}
	return opts, nil
}

func (o tagOpts) has(k string) bool {
	_, ok := o[k]
	return ok
}

func (o tagOpts) uint(k string, max uint64) (uint64, bool, error) {
	s, ok := o[k]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s: %w", k, err)
	}
	if n > max {
		return 0, true, fmt.Errorf("%s value %#x too big", k, n)
	}
	return n, true, nil
}

func (o tagOpts) flags() RWFlags {
	var f RWFlags
	if o.has("readonly") {
		f |= ReadOnlyFlag
	}
	if o.has("writeonly") {
		f |= WriteOnlyFlag
	}
	return f
}

// method looks up the callback method bound by option k (rcb/wcb/pcb).
func (o tagOpts) method(k, prefix, field string, owner reflect.Value) (reflect.Value, error) {
	name, ok := o[k]
	if !ok {
		return reflect.Value{}, nil
	}
	if name == "" {
		name = prefix + strings.ToUpper(field)
	}
	m := owner.MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("missing method %s", name)
	}
	return m, nil
}

func bindCb[F any](o tagOpts, k, prefix, field string, owner reflect.Value, dst *F) error {
	m, err := o.method(k, prefix, field, owner)
	if err != nil || !m.IsValid() {
		return err
	}
	f, ok := m.Interface().(F)
	if !ok {
		return fmt.Errorf("method %s%s has type %s, want %T", prefix, strings.ToUpper(field), m.Type(), *dst)
	}
	*dst = f
	return nil
}

func initReg8(reg *Reg8, name string, o tagOpts, owner reflect.Value) error {
	reg.Name = name
	reg.Flags = o.flags()

	reset, _, err := o.uint("reset", 0xFF)
	if err != nil {
		return err
	}
	reg.Value = uint8(reset)

	rwmask, ok, err := o.uint("rwmask", 0xFF)
	if err != nil {
		return err
	}
	if ok {
		reg.RoMask = ^uint8(rwmask)
	}

	if err := bindCb(o, "rcb", "Read", name, owner, &reg.ReadCb); err != nil {
		return err
	}
	if err := bindCb(o, "pcb", "Peek", name, owner, &reg.PeekCb); err != nil {
		return err
	}
	return bindCb(o, "wcb", "Write", name, owner, &reg.WriteCb)
}

func initMem(m *Mem, name string, o tagOpts, owner reflect.Value) error {
	m.Name = name
	size, ok, err := o.uint("size", 0x10000)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("Mem requires size")
	}
	if size&(size-1) != 0 {
		return fmt.Errorf("size %#x is not a power of 2", size)
	}
	m.Data = make([]byte, size)
	m.VSize = int(size)

	vsize, ok, err := o.uint("vsize", 0x10000)
	if err != nil {
		return err
	}
	if ok {
		m.VSize = int(vsize)
	}
	if o.has("readonly") {
		m.Flags |= MemFlag8ReadOnly
	}
	return bindCb(o, "wcb", "Write", name, owner, &m.WriteCb)
}

func initDevice(d *Device, name string, o tagOpts, owner reflect.Value) error {
	d.Name = name
	d.Flags = o.flags()
	size, ok, err := o.uint("size", 0x10000)
	if err != nil {
		return err
	}
	if !ok {
		size = 1
	}
	d.Size = int(size)

	if err := bindCb(o, "rcb", "Read", name, owner, &d.ReadCb); err != nil {
		return err
	}
	if err := bindCb(o, "pcb", "Peek", name, owner, &d.PeekCb); err != nil {
		return err
	}
	return bindCb(o, "wcb", "Write", name, owner, &d.WriteCb)
}

type bankRegInfo struct {
	offset uint16
	regPtr any
}

// bankGetRegs returns the registers of bank number bankNum in the structure
// pointed by data.
func bankGetRegs(data any, bankNum int) ([]bankRegInfo, error) {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return nil, errors.New("bankGetRegs: expected pointer to struct")
	}
	val = val.Elem()
	typ := val.Type()

	var regs []bankRegInfo
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
		off, ok, err := opts.uint("offset", 0xFFFF)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
		if !ok {
			continue
		}
		bank, _, err := opts.uint("bank", 0xFF)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
		if int(bank) != bankNum {
			continue
		}
		regs = append(regs, bankRegInfo{
			offset: uint16(off),
			regPtr: val.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
