package model

// GPUType はGPUハードウェア種別を表す閉じた列挙型。
type GPUType string

// GPUType の許可値
const (
	GPUNone      GPUType = "No GPU"
	GPURTX3060   GPUType = "NVIDIA RTX 3060"
	GPURTX4070Ti GPUType = "NVIDIA RTX 4070 Ti"
	GPURTX4090   GPUType = "NVIDIA RTX 4090"
	GPUAMDRX7000 GPUType = "AMD Radeon RX 7000 Series"
	GPUOther     GPUType = "Other"
)

// GPUTypes は許可されるGPU種別の一覧。
var GPUTypes = []GPUType{
	GPUNone, GPURTX3060, GPURTX4070Ti, GPURTX4090, GPUAMDRX7000, GPUOther,
}

// Valid は語彙内の値であればtrueを返す。
func (g GPUType) Valid() bool {
	for _, v := range GPUTypes {
		if g == v {
			return true
		}
	}
	return false
}

// RAMCapacity はシステムRAM容量の区分を表す閉じた列挙型。
type RAMCapacity string

// RAMCapacity の許可値
const (
	RAM4to8   RAMCapacity = "4-8GB"
	RAM8to16  RAMCapacity = "8-16GB"
	RAM16to32 RAMCapacity = "16-32GB"
	RAM32Plus RAMCapacity = "32GB or more"
)

// RAMCapacities は許可されるRAM容量区分の一覧。
var RAMCapacities = []RAMCapacity{RAM4to8, RAM8to16, RAM16to32, RAM32Plus}

// Valid は語彙内の値であればtrueを返す。
func (c RAMCapacity) Valid() bool {
	for _, v := range RAMCapacities {
		if c == v {
			return true
		}
	}
	return false
}

// CodingLanguage は既知のプログラミング言語を表す閉じた列挙型。
type CodingLanguage string

// CodingLanguage の許可値
const (
	LangNone       CodingLanguage = "None"
	LangPython     CodingLanguage = "Python"
	LangCPP        CodingLanguage = "C++"
	LangJavaScript CodingLanguage = "JavaScript/TypeScript"
	LangJava       CodingLanguage = "Java"
	LangCSharp     CodingLanguage = "C#"
	LangRust       CodingLanguage = "Rust"
	LangOther      CodingLanguage = "Other"
)

// CodingLanguages は許可される言語の一覧。
var CodingLanguages = []CodingLanguage{
	LangNone, LangPython, LangCPP, LangJavaScript,
	LangJava, LangCSharp, LangRust, LangOther,
}

// Valid は語彙内の値であればtrueを返す。
func (l CodingLanguage) Valid() bool {
	for _, v := range CodingLanguages {
		if l == v {
			return true
		}
	}
	return false
}

// RoboticsExperience はロボティクス経験レベルを表す閉じた列挙型。
type RoboticsExperience string

// RoboticsExperience の許可値
const (
	ExperienceNone         RoboticsExperience = "No prior experience"
	ExperienceHobbyist     RoboticsExperience = "Hobbyist (built simple projects)"
	ExperienceStudent      RoboticsExperience = "Student (taking courses)"
	ExperienceProfessional RoboticsExperience = "Professional (industry experience)"
)

// RoboticsExperiences は許可される経験レベルの一覧。
var RoboticsExperiences = []RoboticsExperience{
	ExperienceNone, ExperienceHobbyist, ExperienceStudent, ExperienceProfessional,
}

// Valid は語彙内の値であればtrueを返す。
func (e RoboticsExperience) Valid() bool {
	for _, v := range RoboticsExperiences {
		if e == v {
			return true
		}
	}
	return false
}
