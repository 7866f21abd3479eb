package steps

import "github.com/shaiso/Provisioner/internal/domain"

// Источники.
const (
	CUDAPinURL       = "https://developer.download.nvidia.com/compute/cuda/repos/ubuntu2204/x86_64/cuda-ubuntu2204.pin"
	CUDAPinFile      = "cuda-ubuntu2204.pin"
	CUDAPinTarget    = "/etc/apt/preferences.d/cuda-repository-pin-600"
	CUDAInstallerURL = "https://developer.download.nvidia.com/compute/cuda/12.6.2/local_installers/" + CUDAInstallerDeb
	CUDAInstallerDeb = "cuda-repo-ubuntu2204-12-6-local_12.6.2-560.35.03-1_amd64.deb"
	CUDALocalRepo    = "/var/cuda-repo-ubuntu2204-12-6-local"
	KeyringDir       = "/usr/share/keyrings/"

	CUDAToolkitPackage = "cuda-toolkit-12-6"
	DriverPackage      = "nvidia-open"

	MarianRepoURL    = "https://github.com/marian-nmt/marian"
	MarianDir        = "marian"
	MarianBuildDir   = "marian/build"
	SacreBLEURepoURL = "https://github.com/mjpost/sacreBLEU"
	SacreBLEUDir     = "sacreBLEU"

	// BuildJobs — параллелизм make.
	BuildJobs = "8"
)

// ProtobufPackages — пакеты protobuf, нужные marian.
var ProtobufPackages = []string{"libprotobuf10", "protobuf-compiler", "libprotobuf-dev"}

// Provisioning возвращает полный список шагов в порядке выполнения.
func Provisioning() []domain.Step {
	return []domain.Step{
		{
			Name:    "fetch cuda repository pin",
			Command: []string{"wget", CUDAPinURL},
			Kind:    domain.StepKindFetch,
		},
		{
			Name:    "install cuda repository pin",
			Command: []string{"sudo", "mv", CUDAPinFile, CUDAPinTarget},
			Kind:    domain.StepKindFilesystem,
		},
		{
			Name:    "fetch cuda local installer",
			Command: []string{"wget", CUDAInstallerURL},
			Kind:    domain.StepKindFetch,
		},
		{
			Name:    "install cuda local repository",
			Command: []string{"sudo", "dpkg", "-i", CUDAInstallerDeb},
			Kind:    domain.StepKindInstall,
		},
		{
			// Имя keyring содержит ID ключа, поэтому нужен glob через shell.
			Name:    "install cuda keyring",
			Command: []string{"sudo", "sh", "-c", "cp " + CUDALocalRepo + "/cuda-*-keyring.gpg " + KeyringDir},
			Kind:    domain.StepKindFilesystem,
		},
		{
			Name:    "refresh package index",
			Command: []string{"sudo", "apt-get", "update"},
			Kind:    domain.StepKindInstall,
		},
		{
			Name:    "install cuda toolkit",
			Command: []string{"sudo", "apt-get", "-y", "install", CUDAToolkitPackage},
			Kind:    domain.StepKindInstall,
		},
		{
			Name:    "install nvidia open driver",
			Command: []string{"sudo", "apt-get", "install", "-y", DriverPackage},
			Kind:    domain.StepKindInstall,
		},
		{
			Name:    "install protobuf",
			Command: append([]string{"sudo", "apt-get", "install", "-y"}, ProtobufPackages...),
			Kind:    domain.StepKindInstall,
		},
		{
			Name:    "remove cuda installer",
			Command: []string{"rm", CUDAInstallerDeb},
			Kind:    domain.StepKindFilesystem,
		},
		{
			Name:    "clone marian",
			Command: []string{"git", "clone", MarianRepoURL},
			Kind:    domain.StepKindClone,
		},
		{
			Name:    "create marian build directory",
			Command: []string{"mkdir", "-p", "build"},
			Dir:     MarianDir,
			Kind:    domain.StepKindFilesystem,
		},
		{
			Name:    "configure marian",
			Command: []string{"cmake", "..", "-DCMAKE_BUILD_TYPE=Release", "-DUSE_SENTENCEPIECE=ON"},
			Dir:     MarianBuildDir,
			Kind:    domain.StepKindConfigure,
		},
		{
			Name:    "compile marian",
			Command: []string{"make", "-j" + BuildJobs},
			Dir:     MarianBuildDir,
			Kind:    domain.StepKindCompile,
		},
		{
			Name:    "clone sacrebleu",
			Command: []string{"git", "clone", SacreBLEURepoURL, SacreBLEUDir},
			Kind:    domain.StepKindClone,
		},
	}
}
